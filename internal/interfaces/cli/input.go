package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/QuestionBank/pkg/errors"
)

const maxInputBytes = 64 << 20

// readInput returns the contents of path, or stdin for "" and "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	var r io.Reader
	name := path
	if path == "" || path == "-" {
		r, name = cmd.InOrStdin(), "stdin"
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeNotFound, "open %s", path)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeInternal, "read %s", name)
	}
	if len(data) > maxInputBytes {
		return nil, errors.New(errors.ErrCodeValidation, "input too large").WithDetail(name)
	}
	return data, nil
}

// readJSONList decodes a JSON array of T, or a single T, from path.
func readJSONList[T any](cmd *cobra.Command, path string) ([]T, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "input is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if data[0] == '[' {
		var items []T
		if err := dec.Decode(&items); err != nil {
			return nil, errors.Wrap(err, errors.CodeValidation, "malformed JSON input")
		}
		return items, nil
	}
	var item T
	if err := dec.Decode(&item); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "malformed JSON input")
	}
	return []T{item}, nil
}

//Personal.AI order the ending
