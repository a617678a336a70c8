package config

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/encoding/gocode/gocodec"
)

// Validate checks cfg against the CUE schema. It returns the sorted, unique paths of invalid fields and a
// CUE errors.Error describing them when cfg does not satisfy the schema.
//
// Parameters:
//   - schema: the CUE schema source
//   - cfg: the Go value to validate, encoded by its json tags
//
// Returns:
//   - [][]string: the invalid field paths
//   - error: the validation error, or nil
func Validate(schema string, cfg any) (paths [][]string, err error) {
	ctx := cuecontext.New()

	v := ctx.CompileString(schema)
	if v.Err() != nil {
		return nil, fmt.Errorf("config: compile schema: %w", v.Err())
	}
	codec := gocodec.New(ctx, nil)

	w, err := codec.Decode(cfg)
	if err != nil {
		return nil, err
	}

	u := v.Unify(w)
	err = u.Validate(cue.Concrete(true), cue.Final())
	errs := cerrors.Errors(err)
	for _, e := range errs {
		if p := cerrors.Path(e); p != nil {
			paths = append(paths, p)
		}
	}
	if len(errs) != 0 {
		err = cerrors.Promote(err, "invalid config")
	}
	return unique(paths), err
}

// unique returns paths lexically sorted with repeats removed.
func unique(paths [][]string) [][]string {
	slices.SortFunc(paths, slices.Compare[[]string])
	return slices.CompactFunc(paths, slices.Equal[[]string])
}
