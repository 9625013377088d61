// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mesh

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/devblok/vkscene/src/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ParseOBJ reads positions, texture coordinates and faces. Polygons are
// fanned into triangles, texture v is flipped to match Vulkan's image
// origin, and every vertex is white.
func ParseOBJ(r io.Reader) (gfx.Mesh, error) {
	var (
		positions []glm.Vec3
		texcoords []glm.Vec2
		b         = newBuilder()
	)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return gfx.Mesh{}, errors.Wrapf(err, "line %d", line)
			}
			positions = append(positions, glm.Vec3{v[0], v[1], v[2]})
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return gfx.Mesh{}, errors.Wrapf(err, "line %d", line)
			}
			texcoords = append(texcoords, glm.Vec2{v[0], 1 - v[1]})
		case "f":
			if len(fields) < 4 {
				return gfx.Mesh{}, errors.Errorf("line %d: face with %d vertices", line, len(fields)-1)
			}
			corners := make([]gfx.Vertex, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				v, err := resolveCorner(ref, positions, texcoords)
				if err != nil {
					return gfx.Mesh{}, errors.Wrapf(err, "line %d", line)
				}
				corners = append(corners, v)
			}
			for idx := 1; idx+1 < len(corners); idx++ {
				b.add(corners[0])
				b.add(corners[idx])
				b.add(corners[idx+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return gfx.Mesh{}, err
	}
	return b.finish()
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, errors.Errorf("expected %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for idx := 0; idx < n; idx++ {
		f, err := strconv.ParseFloat(fields[idx], 32)
		if err != nil {
			return nil, err
		}
		out[idx] = float32(f)
	}
	return out, nil
}

// resolveIndex turns a 1-based or negative relative OBJ index into a
// 0-based one.
func resolveIndex(ref string, count int) (int, error) {
	idx, err := strconv.Atoi(ref)
	if err != nil {
		return 0, err
	}
	switch {
	case idx > 0 && idx <= count:
		return idx - 1, nil
	case idx < 0 && -idx <= count:
		return count + idx, nil
	}
	return 0, errors.Errorf("index %d out of range [1, %d]", idx, count)
}

func resolveCorner(ref string, positions []glm.Vec3, texcoords []glm.Vec2) (gfx.Vertex, error) {
	parts := strings.Split(ref, "/")
	pos, err := resolveIndex(parts[0], len(positions))
	if err != nil {
		return gfx.Vertex{}, errors.Wrap(err, "position")
	}
	v := gfx.Vertex{
		Pos:   positions[pos],
		Color: glm.Vec3{1, 1, 1},
	}
	if len(parts) > 1 && parts[1] != "" {
		tc, err := resolveIndex(parts[1], len(texcoords))
		if err != nil {
			return gfx.Vertex{}, errors.Wrap(err, "texcoord")
		}
		v.TexCoord = texcoords[tc]
	}
	return v, nil
}
