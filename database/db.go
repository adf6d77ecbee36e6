/*
Copyright 2024 PipLine Treasury Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"github.com/pipline/treasury/config"
	"github.com/pipline/treasury/internal/apierror"
	"github.com/pipline/treasury/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var (
	instance *Datasource
	once     sync.Once
	tracer   = otel.Tracer("treasury.database")
)

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection returns the process-wide datasource, connecting on first use.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		timeout := time.Duration(configuration.DataSource.ConnectTimeoutSec) * time.Second
		con, errConn := ConnectDB(configuration.DataSource.Dns, timeout)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// ConnectDB opens a Postgres pool and pings it with exponential backoff
// until it answers or timeout elapses.
func ConnectDB(dns string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = timeout
	err = backoff.RetryNotify(db.Ping, b, func(err error, next time.Duration) {
		logrus.Warnf("database not ready, retrying in %s: %v", next, err)
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "database connection error")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

// whereFilter renders f as a WHERE clause over the psp and date columns,
// numbering placeholders from start.
func whereFilter(f model.BalanceFilter, start int) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, start+len(args)-1))
	}
	if f.PSP != "" {
		add("psp = $%d", f.PSP)
	}
	if f.From != "" {
		add("date >= $%d", f.From)
	}
	if f.To != "" {
		add("date <= $%d", f.To)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}
	return nil
}
