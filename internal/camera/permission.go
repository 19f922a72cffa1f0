package camera

import (
	"context"
	"strings"
)

// Asker asks the user a question and returns the answer line.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// PromptPermission asks on the terminal before the first capture and
// remembers a yes for the rest of the session.
type PromptPermission struct {
	Asker   Asker
	granted bool
}

func (p *PromptPermission) Granted() bool { return p.granted }

func (p *PromptPermission) Request(ctx context.Context) (bool, error) {
	answer, err := p.Asker.Ask(ctx, "Allow camera access? [y/N] ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		p.granted = true
	}
	return p.granted, nil
}
