// Streaming parquet reading for the spot seed file.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/sawanori/mapmapmap/internal/domain"
)

// spotColumns holds leaf-level column indexes resolved by name.
type spotColumns struct {
	id          int
	name        int
	lat         int
	lng         int
	category    int
	description int
	rating      int
	address     int
}

// resolveSpotColumns finds leaf-level column indexes by name.
func resolveSpotColumns(pf *parquet.File) (spotColumns, error) {
	cols := spotColumns{
		id: -1, name: -1, lat: -1, lng: -1,
		category: -1, description: -1, rating: -1, address: -1,
	}
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		switch path[0] {
		case "id":
			cols.id = i
		case "name":
			cols.name = i
		case "lat":
			cols.lat = i
		case "lng":
			cols.lng = i
		case "category":
			cols.category = i
		case "description":
			cols.description = i
		case "rating":
			cols.rating = i
		case "address":
			cols.address = i
		}
	}
	if cols.id < 0 || cols.name < 0 || cols.lat < 0 || cols.lng < 0 {
		return cols, fmt.Errorf("parquet schema missing required columns (id, name, lat, lng)")
	}
	return cols, nil
}

// rowToSpot extracts a domain.Spot from a generic parquet row by column index.
func rowToSpot(row parquet.Row, cols spotColumns) domain.Spot {
	var s domain.Spot
	for _, v := range row {
		switch v.Column() {
		case cols.id:
			s.ID = v.String()
		case cols.name:
			s.Name = v.String()
		case cols.lat:
			if !v.IsNull() {
				s.Lat = v.Double()
			}
		case cols.lng:
			if !v.IsNull() {
				s.Lng = v.Double()
			}
		case cols.category:
			if !v.IsNull() {
				s.Category = v.String()
			}
		case cols.description:
			if !v.IsNull() {
				s.Description = v.String()
			}
		case cols.rating:
			if !v.IsNull() {
				r := v.Double()
				s.Rating = &r
			}
		case cols.address:
			if !v.IsNull() {
				s.Address = v.String()
			}
		}
	}
	return s
}

// readSpots streams the parquet file in batches. The callback returns an
// error to abort the read.
func readSpots(path string, batchSize int, cb func(batch []domain.Spot) error) error {
	cleanPath := filepath.Clean(path)
	f, err := os.Open(cleanPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return fmt.Errorf("open parquet: %w", err)
	}

	cols, err := resolveSpotColumns(pf)
	if err != nil {
		return err
	}

	batch := make([]domain.Spot, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := cb(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		buf := make([]parquet.Row, 256)

		for {
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				spot := rowToSpot(buf[i], cols)
				if spot.ID == "" {
					continue
				}
				batch = append(batch, spot)
				if len(batch) >= batchSize {
					if err := flush(); err != nil {
						return err
					}
				}
			}

			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return fmt.Errorf("read rows: %w", readErr)
			}
		}
	}

	return flush()
}
