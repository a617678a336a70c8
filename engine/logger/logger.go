// package logger builds the slog loggers shared by the player's components.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kortschak/goroutine"
)

// New returns a text logger writing to w that tags every record with the calling goroutine's id,
// so records emitted off the loop goroutine stand out.
//
// Parameters:
//   - w: the destination
//   - level: the minimum level; a *slog.LevelVar allows changing it at run time
//
// Returns:
//   - *slog.Logger: the logger
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(GoID{slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})})
}

// GoID is a slog.Handler that adds the calling goroutine's goid.
type GoID struct {
	slog.Handler
}

func (h GoID) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(slog.Int64("goid", goroutine.ID()))
	return h.Handler.Handle(ctx, r)
}

func (h GoID) WithAttrs(attrs []slog.Attr) slog.Handler {
	return GoID{h.Handler.WithAttrs(attrs)}
}

func (h GoID) WithGroup(name string) slog.Handler {
	return GoID{h.Handler.WithGroup(name)}
}

// Stringer implements slog.LogValuer for [fmt.Stringer].
type Stringer struct {
	fmt.Stringer
}

func (v Stringer) LogValue() slog.Value {
	if v.Stringer == nil {
		return slog.StringValue("<nil>")
	}
	return slog.StringValue(v.String())
}
