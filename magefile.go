//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles the visualizer. HDF5 export needs cgo and the HDF5
// headers, found through CGO_CFLAGS and CGO_LDFLAGS.
func Build() error {
	mg.Deps(BuildVisualizer)
	fmt.Println("Compilation finished")
	return nil
}

func BuildVisualizer() error {
	fmt.Println("Building mapvisualizer executable...")
	return goCommand("build", "-o", "./bin/mapvisualizer", "./visualizer")
}

// Test runs every package test.
func Test() error {
	fmt.Println("Running tests...")
	return goCommand("test", "./...")
}

// Mappings lists the detector mappings compiled into the binary.
func Mappings() error {
	mg.Deps(BuildVisualizer)
	cmd := exec.Command("./bin/mapvisualizer", "mappings")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func goCommand(args ...string) error {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
