package common

import (
	"github.com/inhies/go-bytesize"
)

// GetSize renders a byte count in human units, e.g. "1.50MB".
func GetSize(sizeVal int64) string {
	size := bytesize.New(float64(sizeVal))
	return size.String()
}
