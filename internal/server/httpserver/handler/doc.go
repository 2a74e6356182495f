// Package handler implements the JSON API over the token manager.
//
// Every response uses the Response envelope. Raw token values appear in
// exactly one place: the qr_text of an issuance response.
package handler
