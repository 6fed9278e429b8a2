package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/w3guard/solidity-sentinel/src/internal"
)

const contractColumns = "address, contract, balance, isopensource, createtime, createblock, txlast, isdecompiled, dedcode"

// InitContractsDB opens the MySQL pool holding downloaded contracts and
// verifies it with a ping. DSN comes from CONTRACTS_DSN or settings.yaml.
func InitContractsDB() (*sql.DB, error) {
	dsn := os.Getenv("CONTRACTS_DSN")
	if dsn == "" {
		if s := settings(); s != nil {
			dsn = s.Database.ContractsDSN
		}
	}
	if dsn == "" {
		return nil, fmt.Errorf("contracts DSN not configured (CONTRACTS_DSN or database.contracts_dsn)")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("InitContractsDB: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("InitContractsDB ping failed: %w", err)
	}
	return db, nil
}

// InitReportsDB opens the Postgres pool for persisted audit reports via the
// pgx stdlib driver. DSN comes from REPORTS_DSN or settings.yaml.
func InitReportsDB() (*sql.DB, error) {
	dsn := os.Getenv("REPORTS_DSN")
	if dsn == "" {
		if s := settings(); s != nil {
			dsn = s.Database.ReportsDSN
		}
	}
	if dsn == "" {
		return nil, fmt.Errorf("reports DSN not configured (REPORTS_DSN or database.reports_dsn)")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("InitReportsDB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("InitReportsDB ping failed: %w", err)
	}
	return db, nil
}

// GetContracts reads contract rows; limit <= 0 means no limit.
func GetContracts(ctx context.Context, db *sql.DB, limit int) ([]internal.Contract, error) {
	if db == nil {
		return nil, fmt.Errorf("GetContracts: db is nil")
	}

	query := "SELECT " + contractColumns + " FROM contracts"
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanContracts(rows)
}

// GetContractsByAddresses fetches the given addresses in one query.
func GetContractsByAddresses(ctx context.Context, db *sql.DB, addresses []string) ([]internal.Contract, error) {
	if db == nil {
		return nil, fmt.Errorf("GetContractsByAddresses: db is nil")
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("GetContractsByAddresses: addresses empty")
	}

	placeholders := make([]string, len(addresses))
	args := make([]interface{}, len(addresses))
	for i, addr := range addresses {
		placeholders[i] = "?"
		args[i] = addr
	}

	query := fmt.Sprintf("SELECT %s FROM contracts WHERE address IN (%s)",
		contractColumns, strings.Join(placeholders, ","))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanContracts(rows)
}

func scanContracts(rows *sql.Rows) ([]internal.Contract, error) {
	var out []internal.Contract
	for rows.Next() {
		var c internal.Contract
		var isOpenInt, isDecompiledInt int
		var createBlock int64
		var dedCode sql.NullString

		if err := rows.Scan(&c.Address, &c.Code, &c.Balance, &isOpenInt,
			&c.CreateTime, &createBlock, &c.TxLast, &isDecompiledInt, &dedCode); err != nil {
			return nil, err
		}

		c.IsOpenSource = isOpenInt != 0
		c.CreateBlock = uint64(createBlock)
		c.IsDecompiled = isDecompiledInt != 0
		if dedCode.Valid {
			c.DedCode = dedCode.String
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
