// Command qrtoken-server serves the QR token API.
//
// Configuration comes from an optional YAML file (-config), a .env file and
// QRTOKEN_* environment variables, in increasing order of precedence:
//
//	QRTOKEN_SECURITY_MASTER_KEY=hex:... qrtoken-server -config /etc/qrtoken/server.yaml
package main
