package sqldataset

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JonathanWenger/streambasedal/dataset"
)

/*
Adapter gives access to a database holding a sample table, hiding the
driver-specific connection setup.
*/
type Adapter interface {
	// DB returns the open handle to the backing database.
	DB() *sql.DB
	// Close releases the underlying connections.
	Close() error
}

/*
Open reads every row of the given table through the adapter and
returns an in-memory dataset delivering the samples in the order
given by opts. All columns but the last must hold numeric feature
values; the last column holds the integer class label.
*/
func Open(ctx context.Context, adapter Adapter, table string, opts *dataset.Options) (*dataset.Dataset, error) {
	rows, err := adapter.DB().QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("querying samples from table %s: %v", table, err)
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("describing table %s: %v", table, err)
	}
	if len(columns) < 2 {
		return nil, fmt.Errorf("table %s has %d columns, need at least one feature and a label", table, len(columns))
	}
	values := make([]float64, len(columns))
	scanDest := make([]interface{}, len(columns))
	for i := range values {
		scanDest[i] = &values[i]
	}
	var samples []dataset.Sample
	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return nil, fmt.Errorf("scanning row %d of table %s: %v", len(samples)+1, table, err)
		}
		x := append([]float64(nil), values[:len(values)-1]...)
		y := int(values[len(values)-1])
		if y < 0 {
			return nil, fmt.Errorf("row %d of table %s has negative class label %d", len(samples)+1, table, y)
		}
		samples = append(samples, dataset.Sample{X: x, Y: y})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading table %s: %v", table, err)
	}
	return dataset.New(samples, opts), nil
}
