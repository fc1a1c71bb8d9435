// Package report renders the per-user balance statement for a calendar day
// and archives it as CSV.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/roi"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/sirupsen/logrus"
)

const contentType = "text/csv"

type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

type Source interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetBalanceByDate(ctx context.Context, userID uint, day time.Time) (*roi.Statement, error)
}

type Reporter struct {
	src    Source
	blob   BlobWriter
	logger *logrus.Entry
}

func NewReporter(src Source, blob BlobWriter, logger *utils.Logger) *Reporter {
	return &Reporter{src: src, blob: blob, logger: logger.WithComponent("report")}
}

var header = []string{
	"user_id", "username", "wallet_address", "cutoff",
	"principal", "earned", "withdrawn", "raw", "available",
	"active_positions", "completed_positions",
}

func Path(day time.Time) string {
	return "reports/balances/" + utils.StartOfDay(day).Format(time.DateOnly) + ".csv"
}

// Run writes the statement of every user at 00:00 UTC of day and returns the
// object path.
func (r *Reporter) Run(ctx context.Context, day time.Time) (string, error) {
	users, err := r.src.ListUsers(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", err
	}

	rows := 0
	for _, u := range users {
		if u.Wallet == nil {
			r.logger.Warnf("user %d has no wallet, skipped", u.ID)
			continue
		}

		st, err := r.src.GetBalanceByDate(ctx, u.ID, day)
		if err != nil {
			return "", fmt.Errorf("statement for user %d: %w", u.ID, err)
		}

		record := []string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Username,
			u.Wallet.Address,
			st.Cutoff.UTC().Format(time.RFC3339),
			st.Principal.StringFixed(8),
			st.Earned.StringFixed(8),
			st.Withdrawn.StringFixed(8),
			st.Raw.StringFixed(8),
			st.Available.StringFixed(8),
			strconv.Itoa(st.ActivePositions),
			strconv.Itoa(st.CompletedPositions),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
		rows++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	path := Path(day)
	if err := r.blob.Put(ctx, path, &buf, contentType); err != nil {
		return "", err
	}

	r.logger.Infof("%d statements written to %s", rows, path)
	return path, nil
}
