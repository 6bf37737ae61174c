package insights

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/docsight/backend/pkg/logger"
)

// Service answers analytics queries over the product metrics CSVs
// (products, sales, production, reviews). The files are read once at
// construction and held in memory; they change only with a redeploy.
type Service struct {
	products   []Product
	sales      []QuantityRecord
	production []QuantityRecord
	reviews    []Review
}

type Product struct {
	ID         string    `json:"product_id"`
	Name       string    `json:"name"`
	LaunchDate time.Time `json:"launch_date"`
}

// QuantityRecord is one dated quantity observation, used for both sales and
// production rows.
type QuantityRecord struct {
	Date      time.Time `json:"date"`
	ProductID string    `json:"product_id"`
	Quantity  float64   `json:"quantity"`
}

type Review struct {
	Date      time.Time `json:"date"`
	ProductID string    `json:"product_id"`
	Rating    float64   `json:"rating"`
	Sentiment string    `json:"sentiment"`
}

// Summary holds the headline metrics.
type Summary struct {
	TotalSalesQuantity      float64 `json:"total_sales_quantity"`
	TotalProductionQuantity float64 `json:"total_production_quantity"`
	AverageRating           float64 `json:"average_rating"`
	ProductCount            int     `json:"product_count"`
	ReviewCount             int     `json:"review_count"`
}

// ProductQuantity is an aggregated quantity keyed by product name.
type ProductQuantity struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
}

// SeriesPoint is one step of a per-product time series.
type SeriesPoint struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// ProductDetail bundles the per-product drill-down.
type ProductDetail struct {
	Product    Product        `json:"product"`
	Sales      []SeriesPoint  `json:"sales"`
	Sentiments map[string]int `json:"sentiments"`
}

const dateLayout = "2006-01-02"

// NewService loads the four metrics files from dir. A missing or malformed
// file fails construction; partial analytics would be misleading.
func NewService(dir string) (*Service, error) {
	s := &Service{}

	var err error
	if s.products, err = loadProducts(filepath.Join(dir, "products.csv")); err != nil {
		return nil, err
	}
	if s.sales, err = loadQuantities(filepath.Join(dir, "sales.csv")); err != nil {
		return nil, err
	}
	if s.production, err = loadQuantities(filepath.Join(dir, "production.csv")); err != nil {
		return nil, err
	}
	if s.reviews, err = loadReviews(filepath.Join(dir, "reviews.csv")); err != nil {
		return nil, err
	}

	logger.Info("Insights data loaded",
		zap.Int("products", len(s.products)),
		zap.Int("sales_rows", len(s.sales)),
		zap.Int("production_rows", len(s.production)),
		zap.Int("reviews", len(s.reviews)),
	)

	return s, nil
}

func (s *Service) Summary() Summary {
	var totalSales, totalProduction, ratingSum float64
	for _, r := range s.sales {
		totalSales += r.Quantity
	}
	for _, r := range s.production {
		totalProduction += r.Quantity
	}
	for _, r := range s.reviews {
		ratingSum += r.Rating
	}

	var avgRating float64
	if len(s.reviews) > 0 {
		avgRating = ratingSum / float64(len(s.reviews))
	}

	return Summary{
		TotalSalesQuantity:      totalSales,
		TotalProductionQuantity: totalProduction,
		AverageRating:           avgRating,
		ProductCount:            len(s.products),
		ReviewCount:             len(s.reviews),
	}
}

func (s *Service) SalesByProduct() []ProductQuantity {
	return s.aggregateByProduct(s.sales)
}

func (s *Service) ProductionByProduct() []ProductQuantity {
	return s.aggregateByProduct(s.production)
}

func (s *Service) SentimentDistribution() map[string]int {
	counts := make(map[string]int)
	for _, r := range s.reviews {
		counts[r.Sentiment]++
	}
	return counts
}

// Products returns the catalog sorted by name.
func (s *Service) Products() []Product {
	out := make([]Product, len(s.products))
	copy(out, s.products)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ProductDetail returns the drill-down for one product by name.
func (s *Service) ProductDetail(name string) (*ProductDetail, error) {
	var product *Product
	for i := range s.products {
		if s.products[i].Name == name {
			product = &s.products[i]
			break
		}
	}
	if product == nil {
		return nil, fmt.Errorf("unknown product: %s", name)
	}

	var series []SeriesPoint
	for _, r := range s.sales {
		if r.ProductID == product.ID {
			series = append(series, SeriesPoint{Date: r.Date, Quantity: r.Quantity})
		}
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	sentiments := make(map[string]int)
	for _, r := range s.reviews {
		if r.ProductID == product.ID {
			sentiments[r.Sentiment]++
		}
	}

	return &ProductDetail{
		Product:    *product,
		Sales:      series,
		Sentiments: sentiments,
	}, nil
}

func (s *Service) aggregateByProduct(records []QuantityRecord) []ProductQuantity {
	names := make(map[string]string, len(s.products))
	for _, p := range s.products {
		names[p.ID] = p.Name
	}

	totals := make(map[string]float64)
	for _, r := range records {
		totals[r.ProductID] += r.Quantity
	}

	out := make([]ProductQuantity, 0, len(totals))
	for id, qty := range totals {
		out = append(out, ProductQuantity{
			ProductID: id,
			Name:      names[id],
			Quantity:  qty,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

func loadProducts(path string) ([]Product, error) {
	rows, cols, err := readTable(path)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		launch, err := time.Parse(dateLayout, row[cols["Launch_Date"]])
		if err != nil {
			return nil, fmt.Errorf("%s: bad Launch_Date: %w", path, err)
		}
		products = append(products, Product{
			ID:         row[cols["Product_ID"]],
			Name:       row[cols["Name"]],
			LaunchDate: launch,
		})
	}
	return products, nil
}

func loadQuantities(path string) ([]QuantityRecord, error) {
	rows, cols, err := readTable(path)
	if err != nil {
		return nil, err
	}

	records := make([]QuantityRecord, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(dateLayout, row[cols["Date"]])
		if err != nil {
			return nil, fmt.Errorf("%s: bad Date: %w", path, err)
		}
		qty, err := strconv.ParseFloat(row[cols["Quantity"]], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad Quantity: %w", path, err)
		}
		records = append(records, QuantityRecord{
			Date:      date,
			ProductID: row[cols["Product_ID"]],
			Quantity:  qty,
		})
	}
	return records, nil
}

func loadReviews(path string) ([]Review, error) {
	rows, cols, err := readTable(path)
	if err != nil {
		return nil, err
	}

	reviews := make([]Review, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(dateLayout, row[cols["Date"]])
		if err != nil {
			return nil, fmt.Errorf("%s: bad Date: %w", path, err)
		}
		rating, err := strconv.ParseFloat(row[cols["Rating"]], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad Rating: %w", path, err)
		}
		reviews = append(reviews, Review{
			Date:      date,
			ProductID: row[cols["Product_ID"]],
			Rating:    rating,
			Sentiment: row[cols["Sentiment"]],
		})
	}
	return reviews, nil
}

// readTable reads a CSV file and returns its data rows plus a header name to
// column index map, so column order in the files does not matter.
func readTable(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}

	cols := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		cols[name] = i
	}

	return all[1:], cols, nil
}
