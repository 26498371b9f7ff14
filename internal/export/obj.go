// Package export writes chunk meshes and routes to disk for inspection.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/Faultbox/roadtrain/internal/terrain"
	"github.com/Faultbox/roadtrain/pkg/grid"
)

// ObjSink stores each added chunk as a zstd-compressed Wavefront OBJ file and
// deletes the file when the chunk is removed.
type ObjSink struct {
	dir   string
	level zstd.EncoderLevel
	log   *zap.Logger
}

// NewObjSink creates dir if needed and returns a sink writing into it.
func NewObjSink(dir string, level zstd.EncoderLevel, log *zap.Logger) (*ObjSink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &ObjSink{dir: dir, level: level, log: log}, nil
}

// ChunkPath returns the file a chunk is written to.
func (s *ObjSink) ChunkPath(chunk grid.ChunkCoord) string {
	return filepath.Join(s.dir, fmt.Sprintf("chunk_%d_%d.obj.zst", chunk.X, chunk.Y))
}

// AddChunk writes stream, replacing any earlier file for the same chunk.
func (s *ObjSink) AddChunk(stream *terrain.MeshStream) error {
	path := s.ChunkPath(stream.Chunk)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := s.encode(f, stream); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	s.log.Debug("chunk exported", zap.Stringer("chunk", stream.Chunk), zap.String("path", path))
	return nil
}

func (s *ObjSink) encode(w io.Writer, stream *terrain.MeshStream) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(s.level))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	if err := WriteObj(bw, stream); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// RemoveChunk deletes the chunk's file. A missing file is not an error.
func (s *ObjSink) RemoveChunk(chunk grid.ChunkCoord) error {
	err := os.Remove(s.ChunkPath(chunk))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	s.log.Debug("chunk export removed", zap.Stringer("chunk", chunk))
	return nil
}

// ReadChunk returns the decompressed OBJ text stored for chunk.
func (s *ObjSink) ReadChunk(chunk grid.ChunkCoord) ([]byte, error) {
	f, err := os.Open(s.ChunkPath(chunk))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

// WriteObj writes stream as OBJ text with world-space positions. Faces are
// emitted counter-clockwise seen from +Z, the OBJ front-face convention.
func WriteObj(w io.Writer, stream *terrain.MeshStream) error {
	if err := stream.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	name := fmt.Sprintf("chunk_%d_%d", stream.Chunk.X, stream.Chunk.Y)
	fmt.Fprintf(bw, "# %d vertices, %d triangles\n", len(stream.Vertices), stream.TriangleCount())
	fmt.Fprintf(bw, "o %s\n", name)

	ox, oy := stream.Origin.X(), stream.Origin.Y()
	for _, v := range stream.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v.X()+ox, v.Y()+oy, v.Z())
	}
	for _, uv := range stream.UVs {
		fmt.Fprintf(bw, "vt %g %g\n", uv.X(), uv.Y())
	}
	for _, n := range stream.Normals {
		fmt.Fprintf(bw, "vn %g %g %g\n", n.X(), n.Y(), n.Z())
	}
	for t := 0; t+2 < len(stream.Triangles); t += 3 {
		a := stream.Triangles[t] + 1
		b := stream.Triangles[t+1] + 1
		c := stream.Triangles[t+2] + 1
		fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, c, c, c, b, b, b)
	}
	return bw.Flush()
}
