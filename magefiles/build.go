//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the vetrina binary.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/vetrina", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the full test suite with the race detector.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
