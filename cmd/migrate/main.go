// Command migrate creates the delivery log schema ahead of deployment. A
// server started against a migrated database only checks that the table
// exists and sends no DDL.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ignite/mandrill-gateway/internal/deliverylog"

	_ "github.com/lib/pq"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	if listOnly {
		rows, err := db.QueryContext(ctx, "SELECT tablename FROM pg_tables WHERE schemaname='public' AND tablename LIKE 'mandrill_%' ORDER BY tablename")
		if err != nil {
			log.Fatal(err)
		}
		defer rows.Close()
		n := 0
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				log.Fatal(err)
			}
			fmt.Println(" ", t)
			n++
		}
		fmt.Printf("Total: %d tables\n", n)
		return
	}

	if err := deliverylog.NewPostgresRecorder(db).EnsureSchema(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("mandrill_send_log is up to date")
}
