package pipeline

import (
	"encoding/json"
	"fmt"

	"clubcard-pipeline/internal/model"
	"clubcard-pipeline/pkg/utils"
)

// ------------------- Ingestion -------------------

// ParseExport decodes a raw loyalty-card export and enforces its shape
// before anything downstream runs: the top-level "Purchase" key must be
// a sequence of sequences of transaction objects. Anything else is a
// hard validation failure and no partial state is produced.
func ParseExport(data []byte) (*model.RawExport, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	batches, err := validateSchema(doc)
	if err != nil {
		return nil, err
	}

	return &model.RawExport{
		Batches:  batches,
		Postcode: extractPostcode(doc),
	}, nil
}

func validateSchema(doc map[string]interface{}) ([][]model.GenericRecord, error) {
	raw, ok := doc["Purchase"]
	if !ok {
		return nil, fmt.Errorf("export has no Purchase data")
	}

	outer, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("Purchase must be an array, got %T", raw)
	}

	batches := make([][]model.GenericRecord, 0, len(outer))
	for i, b := range outer {
		inner, ok := b.([]interface{})
		if !ok {
			return nil, fmt.Errorf("Purchase[%d] must be an array of transactions, got %T", i, b)
		}
		batch := make([]model.GenericRecord, 0, len(inner))
		for j, rec := range inner {
			m, ok := rec.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("Purchase[%d][%d] must be a transaction object, got %T", i, j, rec)
			}
			batch = append(batch, model.GenericRecord(m))
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// extractPostcode digs the contributor postcode out of the export's
// customer-profile block. Older exports may not carry it.
func extractPostcode(doc map[string]interface{}) string {
	path := []string{"Customer Profile And Contact Data", "Clubcard Accounts", "postal address"}
	node := doc
	for _, key := range path {
		next, ok := node[key].(map[string]interface{})
		if !ok {
			return ""
		}
		node = next
	}
	return utils.Str(node["postcode"])
}
