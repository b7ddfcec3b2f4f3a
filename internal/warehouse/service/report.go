package service

import (
	"context"

	"github.com/wsms/warehouse-backend/internal/warehouse/repository"
)

// ReportService builds grouped stock summaries
type ReportService struct {
	batchRepo *repository.BatchRepository
	distRepo  *repository.DistributionRepository
}

// NewReportService creates a new report service
func NewReportService(
	batchRepo *repository.BatchRepository,
	distRepo *repository.DistributionRepository,
) *ReportService {
	return &ReportService{
		batchRepo: batchRepo,
		distRepo:  distRepo,
	}
}

// ProductSummary is one product's stock position
type ProductSummary struct {
	ProductName string `json:"product_name"`
	InStock     int    `json:"in_stock"`
	Distributed int    `json:"distributed"`
}

// StockSummary compares on-hand stock against actively distributed stock
// per product
func (s *ReportService) StockSummary(ctx context.Context) ([]*ProductSummary, error) {
	stock, err := s.batchRepo.GroupedTotals(ctx)
	if err != nil {
		return nil, err
	}

	distributed, err := s.distRepo.GroupedActiveTotals(ctx)
	if err != nil {
		return nil, err
	}

	distributedByProduct := make(map[string]int, len(distributed))
	for _, d := range distributed {
		distributedByProduct[d.ProductName] = d.TotalQuantity
	}

	summaries := make([]*ProductSummary, 0, len(stock))
	seen := make(map[string]bool, len(stock))
	for _, t := range stock {
		summaries = append(summaries, &ProductSummary{
			ProductName: t.ProductName,
			InStock:     t.TotalQuantity,
			Distributed: distributedByProduct[t.ProductName],
		})
		seen[t.ProductName] = true
	}

	// Products whose every batch is archived still show their distributed total.
	for _, d := range distributed {
		if !seen[d.ProductName] {
			summaries = append(summaries, &ProductSummary{
				ProductName: d.ProductName,
				Distributed: d.TotalQuantity,
			})
		}
	}

	return summaries, nil
}

// GroupedStock sums active stock per product
func (s *ReportService) GroupedStock(ctx context.Context) ([]*repository.GroupedTotal, error) {
	return s.batchRepo.GroupedTotals(ctx)
}
