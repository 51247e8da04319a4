package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/hanpama/relaygraph/internal/request"
)

const defaultMaxUploadBytes = 32 << 20

// uploads holds the files of each operation by operation index, keyed by
// the last segment of the variable path they were mapped to.
type uploads map[int]map[string]*request.File

func (u uploads) attach(op int, name string, f *request.File) {
	if u[op] == nil {
		u[op] = make(map[string]*request.File)
	}
	u[op][name] = f
}

// parseMultipart reads a multipart request: an "operations" field with the
// request or batch JSON, a "map" field sending file parts to variable paths,
// and the file parts. The mapped variables are left null.
func parseMultipart(r *http.Request, maxBody int64) (*envelope, *requestError) {
	limit := maxBody
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(nil, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, badRequest("invalid multipart body")
	}

	ops := r.FormValue("operations")
	if ops == "" {
		return nil, badRequest("missing 'operations'")
	}
	env, rerr := decodeOperations([]byte(ops), "invalid 'operations' JSON")
	if rerr != nil {
		return nil, rerr
	}

	var fileMap map[string][]string
	if m := r.FormValue("map"); m != "" {
		if err := json.Unmarshal([]byte(m), &fileMap); err != nil {
			return nil, badRequest("invalid 'map' JSON")
		}
	}
	env.files = uploads{}
	for key, paths := range fileMap {
		parts := r.MultipartForm.File[key]
		if len(parts) == 0 {
			return nil, badRequest(fmt.Sprintf("missing file part '%s'", key))
		}
		f, err := readPart(key, parts[0])
		if err != nil {
			return nil, badRequest(fmt.Sprintf("failed to read file part '%s'", key))
		}
		for _, p := range paths {
			op, name, ok := uploadTarget(p, env.batched)
			if !ok || op >= len(env.ops) {
				return nil, badRequest(fmt.Sprintf("invalid file path '%s'", p))
			}
			env.files.attach(op, name, f)
		}
	}
	return env, nil
}

// uploadTarget splits "variables.input.manual", or "1.variables.file" in a
// batch, into the operation index and the file name.
func uploadTarget(path string, batched bool) (op int, name string, ok bool) {
	segs := strings.Split(path, ".")
	if batched {
		if len(segs) < 3 {
			return 0, "", false
		}
		n, err := strconv.Atoi(segs[0])
		if err != nil || n < 0 || strings.ContainsAny(segs[0], "+-") {
			return 0, "", false
		}
		op, segs = n, segs[1:]
	}
	if len(segs) < 2 || segs[0] != "variables" {
		return 0, "", false
	}
	return op, segs[len(segs)-1], true
}

func readPart(field string, fh *multipart.FileHeader) (*request.File, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	content, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return &request.File{
		Field:       field,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     content,
	}, nil
}
