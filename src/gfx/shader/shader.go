// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package shader turns shader sources into SPIR-V.
package shader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/devblok/vkscene/src/gfx"
	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

// Phase is the compilation step that rejected a shader.
type Phase string

// Compilation phases
const (
	PhasePreprocess Phase = "preprocess"
	PhaseParse      Phase = "parse"
	PhaseLink       Phase = "link"
)

// CompileError carries the compiler diagnostics of a rejected shader.
type CompileError struct {
	Phase Phase
	Stage gfx.ShaderStage
	Log   string
}

func (e *CompileError) Error() string {
	first := strings.TrimSpace(e.Log)
	if idx := strings.IndexByte(first, '\n'); idx >= 0 {
		first = first[:idx]
	}
	return fmt.Sprintf("%s shader: %s failed: %s", e.Stage, e.Phase, first)
}

// MagicNumber starts every SPIR-V module.
const MagicNumber = 0x07230203

// IsSPIRV reports whether data starts with the little endian SPIR-V
// magic number.
func IsSPIRV(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == MagicNumber
}

var (
	_ gfx.ShaderCompiler = SPIRV{}
	_ gfx.ShaderCompiler = (*Glslang)(nil)
	_ gfx.ShaderCompiler = Auto{}
)

// SPIRV passes precompiled modules through.
type SPIRV struct{}

// Compile implements gfx.ShaderCompiler.
func (SPIRV) Compile(source []byte, stage gfx.ShaderStage, entryPoint string) ([]byte, error) {
	if !IsSPIRV(source) {
		return nil, &CompileError{Phase: PhaseParse, Stage: stage, Log: "not a SPIR-V module"}
	}
	if len(source)%4 != 0 {
		return nil, &CompileError{Phase: PhaseParse, Stage: stage, Log: fmt.Sprintf("module size %d is not a multiple of 4", len(source))}
	}
	return source, nil
}

// DefaultGlslang is the executable looked up in PATH.
const DefaultGlslang = "glslangValidator"

var stageSuffix = map[gfx.ShaderStage]string{
	gfx.StageVertex:                 "vert",
	gfx.StageTessellationControl:    "tesc",
	gfx.StageTessellationEvaluation: "tese",
	gfx.StageGeometry:               "geom",
	gfx.StageFragment:               "frag",
	gfx.StageCompute:                "comp",
}

// NewGlslang creates a compiler running the glslangValidator at path,
// DefaultGlslang when empty. extraArgs is split like a shell would.
func NewGlslang(path, extraArgs string) (*Glslang, error) {
	if path == "" {
		path = DefaultGlslang
	}
	args, err := shellwords.Parse(extraArgs)
	if err != nil {
		return nil, errors.Wrap(err, "glslang arguments")
	}
	return &Glslang{Path: path, Args: args}, nil
}

// Glslang compiles GLSL with an external glslangValidator.
type Glslang struct {
	Path string
	Args []string
}

// Compile implements gfx.ShaderCompiler.
func (g *Glslang) Compile(source []byte, stage gfx.ShaderStage, entryPoint string) ([]byte, error) {
	suffix, ok := stageSuffix[stage]
	if !ok {
		return nil, errors.Errorf("glslang: unknown stage %s", stage)
	}
	if entryPoint == "" {
		entryPoint = "main"
	}

	dir, err := ioutil.TempDir("", "vkscene-shader")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, suffix+".spv")

	args := []string{"-V", "--stdin", "-S", suffix, "-e", entryPoint, "-o", out}
	args = append(args, g.Args...)
	cmd := exec.Command(g.Path, args...)
	cmd.Stdin = bytes.NewReader(source)
	var log bytes.Buffer
	cmd.Stdout = &log
	cmd.Stderr = &log

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, errors.Wrap(err, "glslang")
		}
		return nil, &CompileError{Phase: classify(log.String()), Stage: stage, Log: log.String()}
	}

	code, err := ioutil.ReadFile(out)
	if err != nil {
		return nil, errors.Wrap(err, "glslang output")
	}
	return SPIRV{}.Compile(code, stage, entryPoint)
}

// classify picks the phase of the first error in a glslang log.
func classify(log string) Phase {
	for _, line := range strings.Split(log, "\n") {
		if !strings.HasPrefix(line, "ERROR:") {
			continue
		}
		switch {
		case strings.Contains(line, "Linking"):
			return PhaseLink
		case strings.Contains(line, "'#"), strings.Contains(line, "preprocessor"):
			return PhasePreprocess
		default:
			return PhaseParse
		}
	}
	return PhaseParse
}

// Auto passes SPIR-V through and sends everything else to GLSL.
type Auto struct {
	GLSL gfx.ShaderCompiler
}

// Compile implements gfx.ShaderCompiler.
func (a Auto) Compile(source []byte, stage gfx.ShaderStage, entryPoint string) ([]byte, error) {
	if IsSPIRV(source) {
		return SPIRV{}.Compile(source, stage, entryPoint)
	}
	if a.GLSL == nil {
		return nil, &CompileError{Phase: PhaseParse, Stage: stage, Log: "no GLSL compiler configured"}
	}
	return a.GLSL.Compile(source, stage, entryPoint)
}
