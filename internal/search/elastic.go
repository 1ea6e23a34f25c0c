package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/client"
)

const maxMatches = 10000

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// ElasticIndex stores every kind in one index. Each text field is mapped
// as text with a keyword sub-field used for substring matching.
type ElasticIndex struct {
	es     *client.ESClient
	index  string
	logger *zap.Logger
}

func NewElasticIndex(es *client.ESClient, logger *zap.Logger) *ElasticIndex {
	return &ElasticIndex{es: es, index: es.Index(), logger: logger}
}

// EnsureIndex creates the index with its mapping when it is missing.
func (e *ElasticIndex) EnsureIndex(ctx context.Context) error {
	textField := map[string]interface{}{
		"type": "text",
		"fields": map[string]interface{}{
			"raw": map[string]interface{}{"type": "keyword", "ignore_above": 256},
		},
	}
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"kind":     map[string]interface{}{"type": "keyword"},
				"title":    textField,
				"director": textField,
			},
		},
	}
	return e.es.EnsureIndex(ctx, e.index, mapping)
}

func (e *ElasticIndex) Put(ctx context.Context, kind, id string, fields map[string]string) error {
	doc := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	doc["kind"] = kind

	res, err := e.es.IndexDocument(ctx, e.index, docID(kind, id), doc)
	if err != nil {
		return err
	}
	return e.es.ParseResponse(res, nil)
}

func (e *ElasticIndex) Remove(ctx context.Context, kind, id string) error {
	res, err := e.es.DeleteDocument(ctx, e.index, docID(kind, id))
	if err != nil {
		return err
	}
	if res.StatusCode == 404 {
		res.Body.Close()
		return nil
	}
	return e.es.ParseResponse(res, nil)
}

func (e *ElasticIndex) Match(ctx context.Context, kind, field, term string) ([]string, error) {
	query := map[string]interface{}{
		"size":    maxMatches,
		"_source": false,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"kind": kind}},
					map[string]interface{}{"wildcard": map[string]interface{}{
						field + ".raw": map[string]interface{}{
							"value":            "*" + wildcardEscaper.Replace(term) + "*",
							"case_insensitive": true,
						},
					}},
				},
			},
		},
	}

	res, err := e.es.Search(ctx, e.index, query)
	if err != nil {
		return nil, err
	}

	var body struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := e.es.ParseResponse(res, &body); err != nil {
		return nil, err
	}

	prefix := kind + ":"
	ids := make([]string, 0, len(body.Hits.Hits))
	for _, h := range body.Hits.Hits {
		ids = append(ids, strings.TrimPrefix(h.ID, prefix))
	}
	e.logger.Debug("Search matched",
		zap.String("kind", kind),
		zap.String("field", field),
		zap.Int("hits", len(ids)))
	return ids, nil
}

func docID(kind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}
