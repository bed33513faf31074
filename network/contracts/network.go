package contracts

import (
	"context"

	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

// IURLReader fetches a page and returns its readable text.
type IURLReader interface {
	ReadURL(ctx context.Context, url string) (models.ServiceResponse, error)
}

// ISearcher runs a web search.
type ISearcher interface {
	Search(ctx context.Context, query string) (models.ServiceResponse, error)
}

// ITerminal runs a shell command inside the project folder.
type ITerminal interface {
	Run(ctx context.Context, dir, command string) (models.ServiceResponse, error)
}
