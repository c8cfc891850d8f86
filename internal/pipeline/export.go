package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"clubcard-pipeline/internal/model"
	"clubcard-pipeline/pkg/utils"
)

// ------------------- CSV export -------------------

// Dataset names one of the tabular exports. The set is closed: every
// dataset is dispatched through the table below and unknown names fail
// in ParseDataset rather than falling through to an empty file.
type Dataset string

const (
	DatasetRawPurchases  Dataset = "rawPurchases"
	DatasetRawProducts   Dataset = "rawProducts"
	DatasetAnonPurchases Dataset = "anonPurchases"
	DatasetAnonProducts  Dataset = "anonProducts"
	DatasetAnonWeekly    Dataset = "anonWeekly"
)

// Datasets lists every export in a stable order.
var Datasets = []Dataset{
	DatasetRawPurchases,
	DatasetRawProducts,
	DatasetAnonPurchases,
	DatasetAnonProducts,
	DatasetAnonWeekly,
}

type datasetSpec struct {
	header []string
	rows   func(*model.Session, *Bundle) [][]string
}

var datasetSpecs = map[Dataset]datasetSpec{
	DatasetRawPurchases: {
		header: []string{"timeStamp", "storeId", "storeName", "storeFormat", "purchaseType", "basketValueGross", "basketValueNet", "overallBasketSavings", "totalItems"},
		rows: func(s *model.Session, _ *Bundle) [][]string {
			rows := make([][]string, 0, len(s.RawPurchases))
			for _, p := range s.RawPurchases {
				rows = append(rows, []string{
					p.TimeStamp, p.StoreID, p.StoreName, p.StoreFormat, p.PurchaseType,
					utils.FormatNumber(p.BasketValueGross), utils.FormatNumber(p.BasketValueNet),
					utils.FormatNumber(p.OverallBasketSavings), strconv.Itoa(p.TotalItems),
				})
			}
			return rows
		},
	},
	DatasetRawProducts: {
		header: []string{"name", "quantity", "price", "weightInGrams", "volumeInLitres", "purchaseType", "storeId", "storeName", "timeStamp", "storeFormat"},
		rows: func(s *model.Session, _ *Bundle) [][]string {
			rows := make([][]string, 0, len(s.RawProducts))
			for _, p := range s.RawProducts {
				rows = append(rows, []string{
					p.Name, optIntField(p.Quantity), utils.FormatNumber(p.Price),
					optFloatField(p.WeightInGrams), optFloatField(p.VolumeInLitres),
					p.PurchaseType, p.StoreID, p.StoreName, p.TimeStamp, p.StoreFormat,
				})
			}
			return rows
		},
	},
	DatasetAnonPurchases: {
		header: []string{"date", "storeId", "storeFormat", "purchaseType", "basketValueGross", "basketValueNet", "overallBasketSavings", "totalItems", "hash"},
		rows: func(_ *model.Session, b *Bundle) [][]string {
			rows := make([][]string, 0, len(b.Purchases))
			for _, p := range b.Purchases {
				rows = append(rows, []string{
					p.Date, p.StoreID, p.StoreFormat, p.PurchaseType,
					p.BasketValueGross, p.BasketValueNet,
					utils.FormatNumber(p.OverallBasketSavings), strconv.Itoa(p.TotalItems), p.Hash,
				})
			}
			return rows
		},
	},
	DatasetAnonProducts: {
		header: []string{"date", "name", "price", "storeId", "storeFormat", "hash"},
		rows: func(_ *model.Session, b *Bundle) [][]string {
			rows := make([][]string, 0, len(b.Products))
			for _, p := range b.Products {
				rows = append(rows, []string{
					p.Date, p.Name, utils.FormatNumber(p.Price), p.StoreID, p.StoreFormat, p.Hash,
				})
			}
			return rows
		},
	},
	DatasetAnonWeekly: {
		header: []string{"weekCommencing", "submission", "outcode", "totalBasketValueGross", "totalBasketValueNet", "totalOverallBasketSavings", "totalItems"},
		rows: func(_ *model.Session, b *Bundle) [][]string {
			rows := make([][]string, 0, len(b.Weekly))
			for _, w := range b.Weekly {
				rows = append(rows, []string{
					w.WeekCommencing, w.Submission, w.Outcode,
					w.TotalBasketValueGross, w.TotalBasketValueNet,
					utils.FormatNumber(w.TotalOverallBasketSavings), strconv.Itoa(w.TotalItems),
				})
			}
			return rows
		},
	},
}

// ParseDataset validates a dataset name.
func ParseDataset(name string) (Dataset, error) {
	d := Dataset(name)
	if _, ok := datasetSpecs[d]; !ok {
		return "", fmt.Errorf("unknown dataset %q", name)
	}
	return d, nil
}

// Filename returns the CSV file name for a dataset.
func (d Dataset) Filename() string {
	return string(d) + ".csv"
}

// Rows renders a dataset as header + rows ready for a CSV writer.
func (d Dataset) Rows(session *model.Session, bundle *Bundle) ([]string, [][]string, error) {
	spec, ok := datasetSpecs[d]
	if !ok {
		return nil, nil, fmt.Errorf("unknown dataset %q", string(d))
	}
	return spec.header, spec.rows(session, bundle), nil
}

// ExportCSV writes one dataset to dir.
func ExportCSV(d Dataset, session *model.Session, bundle *Bundle, dir string) (string, error) {
	header, rows, err := d.Rows(session, bundle)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, d.Filename())
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}

	log.Infof("Exported %d rows to %s", len(rows), path)
	return path, nil
}

// ExportAll writes the five datasets to dir and returns their paths.
func ExportAll(session *model.Session, bundle *Bundle, dir string) ([]string, error) {
	paths := make([]string, 0, len(Datasets))
	for _, d := range Datasets {
		path, err := ExportCSV(d, session, bundle, dir)
		if err != nil {
			return paths, fmt.Errorf("exporting %s: %w", string(d), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func optIntField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optFloatField(v *float64) string {
	if v == nil {
		return ""
	}
	return utils.FormatNumber(*v)
}
