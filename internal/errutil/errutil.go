// Package errutil contains methods to simplify working with errors
package errutil

import (
	"io"
	"log"
)

// Close closes the closer and sets the error to err if err is nil
func Close(c io.Closer, err *error) {
	e := c.Close()
	switch *err {
	case nil:
		*err = e
	default:
		if e != nil {
			log.Println("Close() failed:", e)
		}
	}
}
