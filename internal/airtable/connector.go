// Package airtable syncs the operator-maintained customer directory:
// account manager assignments and segmentation fields. The directory
// is the authoritative source for who owns a customer.
package airtable

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/pkg/logger"
	"github.com/ignite/customer-intel/internal/service/customer"
	"github.com/ignite/customer-intel/internal/service/merge"
)

// Directory table field names.
const (
	fieldEmail           = "Email"
	fieldAccountManager  = "Account Manager"
	fieldAMEmail         = "AM Email"
	fieldTrafficSource   = "Traffic Source"
	fieldAcquisitionType = "Acquisition Type"
	fieldIndustry        = "Industry"
	fieldCompanySize     = "Company Size"
	fieldTags            = "Tags"
)

// Connector folds directory rows into existing customers. Rows for
// unknown emails are skipped; the directory assigns ownership, it does
// not establish customers.
type Connector struct {
	client *Client
	svc    *customer.Service
	cfg    config.AirtableConfig
	now    func() time.Time
}

// NewConnector creates an Airtable connector.
func NewConnector(client *Client, svc *customer.Service, cfg config.AirtableConfig) *Connector {
	return &Connector{client: client, svc: svc, cfg: cfg, now: time.Now}
}

// Name reports the source this connector feeds.
func (c *Connector) Name() domain.Source { return domain.SourceAirtable }

// Sync reads the customers table and merges AM assignment and
// segmentation per row.
func (c *Connector) Sync(ctx context.Context) (domain.SyncStats, error) {
	var stats domain.SyncStats

	table := c.cfg.CustomersTable
	if table == "" {
		table = "Customers"
	}

	records, err := c.client.ListRecords(ctx, table)
	if err != nil {
		return stats, fmt.Errorf("airtable sync: %w", err)
	}
	logger.Info("airtable records fetched", "table", table, "count", len(records))

	for _, record := range records {
		email := strings.ToLower(strings.TrimSpace(record.FieldString(fieldEmail)))
		if email == "" {
			stats.Skipped++
			continue
		}

		if _, err := c.svc.GetByEmail(ctx, email); err != nil {
			if errors.Is(err, customer.ErrNotFound) {
				stats.Skipped++
				continue
			}
			stats.Failed++
			continue
		}

		u := buildUpdate(record)
		if _, _, err := c.svc.Ingest(ctx, email, u); err != nil {
			logger.Error("airtable row failed", "record_id", record.ID, "error", err.Error())
			stats.Failed++
			stats.Skipped++
			continue
		}
		stats.Synced++
		stats.Updated++
	}

	return stats, nil
}

func buildUpdate(record Record) merge.Update {
	u := merge.Update{
		Source:           domain.SourceAirtable,
		AirtableRecordID: merge.Str(record.ID),
	}

	if am := record.FieldString(fieldAccountManager); am != "" {
		u.AssignedAM = merge.Str(am)
	}
	if amEmail := record.FieldString(fieldAMEmail); amEmail != "" {
		u.AssignedAMEmail = merge.Str(strings.ToLower(strings.TrimSpace(amEmail)))
	}

	if v := record.FieldString(fieldAcquisitionType); v != "" {
		u.CustomerType = merge.Str(v)
	}
	if v := record.FieldString(fieldTrafficSource); v != "" {
		u.AcquisitionSource = merge.Str(v)
	}
	if v := record.FieldString(fieldIndustry); v != "" {
		u.Industry = merge.Str(v)
	}
	if v := record.FieldString(fieldCompanySize); v != "" {
		u.CompanySize = merge.Str(v)
	}
	if tags := record.FieldStrings(fieldTags); len(tags) > 0 {
		u.Tags = tags
	}

	return u
}
