//go:build !darwin

package main

import "errors"

func checkMetal(string) error {
	return errors.New("go-metal is only available on macOS")
}
