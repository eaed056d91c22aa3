// Package loam reads a service catalog from a directory of Markdown
// documents, one service per file:
//
//	---
//	product_name: Premium Wash
//	base_price: 499
//	---
//	Foam wash, interior vacuum and dashboard polish.
//
// The document body becomes the description unless the frontmatter sets one.
package loam

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/slotflow/pkg/flows"
)

// ErrNoServices is returned when no document ids are given.
var ErrNoServices = errors.New("loam catalog: no service documents listed")

// ServiceMetadata is the frontmatter of a service document.
type ServiceMetadata struct {
	Name        string  `json:"product_name" mapstructure:"product_name"`
	Price       float64 `json:"base_price" mapstructure:"base_price"`
	Description string  `json:"description" mapstructure:"description"`
}

// Catalog loads services from a read-only Loam repository.
type Catalog struct {
	Repo *loam.TypedRepository[ServiceMetadata]
}

// Open initializes a read-only repository rooted at dir.
func Open(dir string) (*Catalog, error) {
	repo, err := loam.Init(dir, loam.WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return &Catalog{Repo: loam.NewTypedRepository[ServiceMetadata](repo)}, nil
}

// Services reads the documents in ids order. A document without a
// product_name is named after its id.
func (c *Catalog) Services(ctx context.Context, ids []string) ([]flows.Service, error) {
	if len(ids) == 0 {
		return nil, ErrNoServices
	}
	services := make([]flows.Service, 0, len(ids))
	for _, id := range ids {
		doc, err := c.Repo.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
		}
		meta := doc.Data
		svc := flows.Service{
			Name:        strings.TrimSpace(meta.Name),
			Price:       meta.Price,
			Description: strings.TrimSpace(meta.Description),
		}
		if svc.Name == "" {
			svc.Name = id
		}
		if svc.Description == "" {
			svc.Description = strings.TrimSpace(doc.Content)
		}
		services = append(services, svc)
	}
	return services, nil
}
