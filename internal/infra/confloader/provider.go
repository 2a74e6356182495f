package confloader

import "errors"

// errReadBytes is returned because koanf reads maps through Read.
var errReadBytes = errors.New("confloader: map provider does not support ReadBytes")

// mapProvider feeds an already-nested map into koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytes
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}
