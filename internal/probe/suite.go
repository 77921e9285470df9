package probe

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/docstack/veristack/pkg/client"
)

// API is the slice of the document API client the suite exercises.
type API interface {
	Ping(ctx context.Context) error
	Store(ctx context.Context, text, auid string, extra map[string]any) (string, error)
	Get(ctx context.Context, auid string) (client.GetResponse, error)
}

// Suite builds the standard verification probes against api. Later probes
// depend on state produced by earlier ones, so the returned order matters.
func Suite(api API) []Probe {
	auid := "verify-" + uuid.NewString()
	text := "verification document " + auid
	var storedID string

	return []Probe{
		{
			Name: "api_connection",
			Run: func(ctx context.Context) error {
				return api.Ping(ctx)
			},
		},
		{
			Name: "store_document",
			Run: func(ctx context.Context) error {
				id, err := api.Store(ctx, text, auid, map[string]any{"origin": "verification"})
				if err != nil {
					return err
				}
				if id == "" {
					return fmt.Errorf("store returned empty document id")
				}
				storedID = id
				return nil
			},
		},
		{
			Name: "retrieve_document",
			Run: func(ctx context.Context) error {
				if storedID == "" {
					return fmt.Errorf("no document stored in earlier step")
				}
				resp, err := api.Get(ctx, auid)
				if err != nil {
					return err
				}
				if resp.Count < 1 {
					return fmt.Errorf("expected at least one document for %s, got %d", auid, resp.Count)
				}
				for _, d := range resp.Documents {
					if d.DocumentID == storedID {
						if d.Text != text {
							return fmt.Errorf("document %s text mismatch", storedID)
						}
						return nil
					}
				}
				return fmt.Errorf("stored document %s not in results", storedID)
			},
		},
		{
			Name: "unknown_auid_empty",
			Run: func(ctx context.Context) error {
				bogus := "missing-" + uuid.NewString()
				resp, err := api.Get(ctx, bogus)
				if err != nil {
					return err
				}
				if resp.Count != 0 || len(resp.Documents) != 0 {
					return fmt.Errorf("expected no documents for %s, got %d", bogus, resp.Count)
				}
				return nil
			},
		},
	}
}
