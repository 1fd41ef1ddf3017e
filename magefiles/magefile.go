//go:build mage

// Mage build targets for detprep.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "detprep"
	cmdPkg  = "./cmd/detprep"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	return sh.RunV("go", "build", "-o", filepath.Join(binDir, binName), cmdPkg)
}

// Test runs all package tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Prepare runs the whole dataset preparation with the settings from detprep.yaml: convert,
// verify and split. verify.data_root must point at the converted dataset.
func Prepare() error {
	mg.Deps(Build)

	bin := filepath.Join(binDir, binName)
	steps := [][]string{
		{"convert"},
		{"verify", "--strict"},
		{"split"},
	}
	for _, args := range steps {
		if err := sh.RunV(bin, args...); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
	}
	return nil
}
