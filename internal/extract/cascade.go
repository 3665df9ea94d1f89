package extract

import (
	"fmt"
	"log/slog"
)

// stage is one attempt in a cascade. It receives what earlier stages
// produced and returns the (possibly extended) result.
type stage[T any] struct {
	name string
	run  func(text string, prev T) (T, error)
}

// cascade runs stages in order until enough reports the result is
// sufficient. A stage that errors or panics is logged and skipped; its
// predecessor's result carries forward.
type cascade[T any] struct {
	concern string
	stages  []stage[T]
	enough  func(T) bool
}

func (c cascade[T]) run(log *slog.Logger, text string) T {
	var out T
	for _, st := range c.stages {
		if c.enough != nil && c.enough(out) {
			break
		}
		next, err := runStage(st, text, out)
		if err != nil {
			log.Warn("extraction stage failed",
				"concern", c.concern,
				"stage", st.name,
				"error", err,
			)
			continue
		}
		out = next
	}
	if c.enough != nil && !c.enough(out) {
		log.Debug("cascade exhausted", "concern", c.concern)
	}
	return out
}

func runStage[T any](st stage[T], text string, prev T) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = prev
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return st.run(text, prev)
}

func nonEmpty(s string) bool { return s != "" }
