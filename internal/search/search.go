package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/car_catalog/internal/models"
)

// Index mirrors cars into a search backend.
type Index interface {
	Put(ctx context.Context, car models.CarView) error
	Remove(ctx context.Context, carID uint) error
	Search(ctx context.Context, q string, ownerID *uint, from, size int) ([]models.CarView, error)
}

type document struct {
	CarID        uint     `json:"car_id"`
	OwnerID      uint     `json:"owner_id"`
	Username     string   `json:"username"`
	LicensePlate string   `json:"license_plate"`
	Brand        string   `json:"brand"`
	Color        string   `json:"color"`
	Model        string   `json:"model"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

func toDocument(c models.CarView) document {
	return document{
		CarID:        c.ID,
		OwnerID:      c.OwnerID,
		Username:     c.Username,
		LicensePlate: c.LicensePlate,
		Brand:        c.Brand,
		Color:        c.Color,
		Model:        c.Model,
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
	}
}

func (d document) view() models.CarView {
	return models.CarView{
		ID:           d.CarID,
		OwnerID:      d.OwnerID,
		Username:     d.Username,
		LicensePlate: d.LicensePlate,
		Brand:        d.Brand,
		Color:        d.Color,
		Model:        d.Model,
		Latitude:     d.Latitude,
		Longitude:    d.Longitude,
	}
}

type ESIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return client, nil
}

// Ping checks that the cluster answers.
func (i *ESIndex) Ping(ctx context.Context) error {
	res, err := i.ES.Info(i.ES.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("info", res.Status(), res.Body)
	}
	return nil
}

func (i *ESIndex) Put(ctx context.Context, car models.CarView) error {
	body, err := json.Marshal(toDocument(car))
	if err != nil {
		return err
	}

	res, err := i.ES.Index(
		i.Index,
		bytes.NewReader(body),
		i.ES.Index.WithContext(ctx),
		i.ES.Index.WithDocumentID(strconv.FormatUint(uint64(car.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("index car %d: %w", car.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res.Status(), res.Body)
	}
	return nil
}

func (i *ESIndex) Remove(ctx context.Context, carID uint) error {
	res, err := i.ES.Delete(
		i.Index,
		strconv.FormatUint(uint64(carID), 10),
		i.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete car %d: %w", carID, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return responseError("delete", res.Status(), res.Body)
	}
	return nil
}

func (i *ESIndex) Search(ctx context.Context, q string, ownerID *uint, from, size int) ([]models.CarView, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(Query(q, ownerID, from, size)); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := i.ES.Search(
		i.ES.Search.WithContext(ctx),
		i.ES.Search.WithIndex(i.Index),
		i.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res.Status(), res.Body)
	}

	return decodeHits(res.Body)
}

// Query builds the search body. ownerID adds a term filter so that a
// restricted caller only ever matches its own cars.
func Query(q string, ownerID *uint, from, size int) map[string]any {
	boolQuery := map[string]any{
		"must": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"license_plate^2", "brand", "model", "color", "username"},
				"fuzziness": "AUTO",
			},
		},
	}
	if ownerID != nil {
		boolQuery["filter"] = []any{
			map[string]any{"term": map[string]any{"owner_id": *ownerID}},
		}
	}
	return map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"from":  from,
		"size":  size,
	}
}

func decodeHits(r io.Reader) ([]models.CarView, error) {
	var body struct {
		Hits struct {
			Hits []struct {
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]models.CarView, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		out = append(out, hit.Source.view())
	}
	return out, nil
}

func responseError(op, status string, body io.Reader) error {
	msg, _ := io.ReadAll(io.LimitReader(body, 512))
	return fmt.Errorf("elasticsearch %s: %s: %s", op, status, bytes.TrimSpace(msg))
}
