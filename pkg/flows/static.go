package flows

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// Service is one catalog entry.
type Service struct {
	Name        string  `json:"product_name" yaml:"product_name"`
	Price       float64 `json:"base_price" yaml:"base_price"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// DefaultServices is a small catalog for demos and local runs.
var DefaultServices = []Service{
	{Name: "Basic Wash", Price: 299, Description: "Exterior foam wash and dry"},
	{Name: "Premium Wash", Price: 499, Description: "Foam wash, interior vacuum, dashboard polish and tyre dressing"},
	{Name: "Interior Detailing", Price: 899, Description: "Deep cleaning of seats, carpets and roof lining"},
}

// LoadCatalog reads a YAML list of services.
func LoadCatalog(r io.Reader) ([]Service, error) {
	var services []Service
	if err := yaml.NewDecoder(r).Decode(&services); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return services, nil
}

// StaticCatalog serves services as a catalog backend would, wrapped in
// {"message": {"services": [...]}}. It answers every request.
type StaticCatalog struct {
	Services []Service
}

func (c StaticCatalog) Do(req *http.Request) (*http.Response, error) {
	body, err := json.Marshal(map[string]any{"message": map[string]any{"services": c.Services}})
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, nil
}
