package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ReadPLY parses an ASCII PLY point cloud from r. Only the "x y z" and
// "x y z nx ny nz" vertex layouts are supported, matching
// load_ply_simple's supported layouts in the original surface-matching
// module. The cloud is read fully into memory; opening any underlying
// file is the caller's responsibility.
func ReadPLY(r io.Reader) (Cloud, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	vertexCount := -1
	hasNormals := false
	inHeader := true

	for inHeader && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "element vertex"):
			fields := strings.Fields(line)
			n, err := strconv.Atoi(fields[len(fields)-1])
			if err != nil {
				return Cloud{}, errors.Wrap(err, "parsing PLY vertex count")
			}
			vertexCount = n
		case strings.HasPrefix(line, "property") && strings.Contains(line, "nx"):
			hasNormals = true
		case line == "end_header":
			inHeader = false
		}
	}
	if vertexCount < 0 {
		return Cloud{}, errors.New("PLY missing \"element vertex\" header")
	}

	out := Cloud{Points: make([]r3.Vector, 0, vertexCount)}
	if hasNormals {
		out.Normals = make([]r3.Vector, 0, vertexCount)
	}

	for i := 0; i < vertexCount && scanner.Scan(); i++ {
		fields := strings.Fields(scanner.Text())
		minFields := 3
		if hasNormals {
			minFields = 6
		}
		if len(fields) < minFields {
			return Cloud{}, errors.Errorf("PLY vertex line %d has too few fields", i)
		}
		vals := make([]float64, minFields)
		for j := 0; j < minFields; j++ {
			v, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return Cloud{}, errors.Wrapf(err, "parsing PLY vertex line %d", i)
			}
			vals[j] = v
		}
		out.Points = append(out.Points, r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]})
		if hasNormals {
			out.Normals = append(out.Normals, r3.Vector{X: vals[3], Y: vals[4], Z: vals[5]})
		}
	}

	if err := scanner.Err(); err != nil {
		return Cloud{}, errors.Wrap(err, "scanning PLY body")
	}
	return out, nil
}

// WritePLY writes c as an ASCII PLY point cloud to w, including normals
// when present. Ported from write_ply in the original surface-matching
// module.
func WritePLY(w io.Writer, c Cloud) error {
	bw := bufio.NewWriter(w)
	hasNormals := c.HasNormals()

	fmt.Fprintln(bw, "ply")
	fmt.Fprintln(bw, "format ascii 1.0")
	fmt.Fprintf(bw, "element vertex %d\n", len(c.Points))
	fmt.Fprintln(bw, "property float x")
	fmt.Fprintln(bw, "property float y")
	fmt.Fprintln(bw, "property float z")
	if hasNormals {
		fmt.Fprintln(bw, "property float nx")
		fmt.Fprintln(bw, "property float ny")
		fmt.Fprintln(bw, "property float nz")
	}
	fmt.Fprintln(bw, "end_header")

	for i, p := range c.Points {
		if hasNormals {
			n := c.Normals[i]
			fmt.Fprintf(bw, "%g %g %g %g %g %g\n", p.X, p.Y, p.Z, n.X, n.Y, n.Z)
		} else {
			fmt.Fprintf(bw, "%g %g %g\n", p.X, p.Y, p.Z)
		}
	}
	return bw.Flush()
}
