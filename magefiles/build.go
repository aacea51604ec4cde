//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

func buildShaders() error {
	if _, err := executeCmd("glslc", withArgs("assets/shaders/triangle.vert", "-o", "assets/shaders/triangle.vert.spv"), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("glslc", withArgs("assets/shaders/triangle.frag", "-o", "assets/shaders/triangle.frag.spv"), withStream()); err != nil {
		return err
	}
	return nil
}

// Compiles the testbed shaders to SPIR-V.
func (Build) Shaders() error {
	return buildShaders()
}

// Runs the test suite.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
