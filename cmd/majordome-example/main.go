// Command majordome-example runs a small notes service on top of the hosted
// modules: an SQLite store, a read-through cache, an HTTP API and a cron job
// that prunes old notes.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/majordome-go/majordome"
	"github.com/majordome-go/majordome/config"
	"github.com/majordome-go/majordome/feeders"
	"github.com/majordome-go/majordome/modules/cache"
	"github.com/majordome-go/majordome/modules/database"
	"github.com/majordome-go/majordome/modules/httpserver"
	"github.com/majordome-go/majordome/modules/scheduler"
)

type note struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type notes struct {
	db     *database.DB
	cache  *cache.Cache
	logger majordome.Logger
}

var notesModule = &majordome.Definition[*notes, struct{}]{
	Name:    "notes",
	Version: "1.0.0",
	Construct: func(ctx context.Context, b *majordome.Builder, _ struct{}) (*notes, error) {
		db, err := database.Default.Load(ctx, b)
		if err != nil {
			return nil, err
		}
		c, err := cache.Default.Load(ctx, b)
		if err != nil {
			return nil, err
		}
		srv, err := httpserver.Default.Load(ctx, b)
		if err != nil {
			return nil, err
		}
		sched, err := scheduler.Default.Load(ctx, b)
		if err != nil {
			return nil, err
		}

		n := &notes{db: db, cache: c, logger: b.Logger()}
		if _, err := db.Exec(ctx, `CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`); err != nil {
			return nil, err
		}

		srv.Router().Route("/notes", func(r chi.Router) {
			r.Post("/", n.create)
			r.Get("/{id}", n.get)
		})
		srv.Router().Handle("/metrics", promhttp.Handler())

		retention := config.GetOr(b.Getter(majordome.InitOptions{}, "notes"), "retention", 7*24*time.Hour)
		if err := sched.AddFunc("@hourly", "prune-notes", func(ctx context.Context) error {
			return n.prune(ctx, retention)
		}); err != nil {
			return nil, err
		}
		return n, nil
	},
}

var notesPointer = majordome.Declare("notes", notesModule)

func (n *notes) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Body string `json:"body"`
	}
	if err := httpserver.DecodeJSON(r, &in); err != nil {
		httpserver.WriteError(w, err, n.logger)
		return
	}

	out := note{Body: in.Body, CreatedAt: time.Now().UTC()}
	res, err := n.db.Exec(r.Context(), "INSERT INTO notes (body, created_at) VALUES (?, ?)", out.Body, out.CreatedAt)
	if err != nil {
		httpserver.WriteError(w, err, n.logger)
		return
	}
	if out.ID, err = res.LastInsertId(); err != nil {
		httpserver.WriteError(w, err, n.logger)
		return
	}
	httpserver.WriteJSON(w, http.StatusCreated, out)
}

func (n *notes) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpserver.WriteError(w, majordome.NewError("errors.notes.invalid_id", "Note id must be an integer", http.StatusBadRequest), n.logger)
		return
	}

	item, err := cache.GetWith(r.Context(), n.cache.Key("note", id).TTL(time.Minute), func(ctx context.Context) (note, error) {
		rows, err := database.Select(ctx, n.db, "SELECT id, body, created_at FROM notes WHERE id = ?", scanNote, id)
		if err != nil {
			return note{}, err
		}
		return database.ExpectOne("note", rows)
	})
	if err != nil {
		httpserver.WriteError(w, err, n.logger)
		return
	}

	w.Header().Set("X-Cache-Hit", strconv.FormatBool(item.Hit()))
	httpserver.WriteJSON(w, http.StatusOK, item.Value())
}

func (n *notes) prune(ctx context.Context, retention time.Duration) error {
	res, err := n.db.Exec(ctx, "DELETE FROM notes WHERE created_at < ?", time.Now().UTC().Add(-retention))
	if err != nil {
		return err
	}
	if count, _ := res.RowsAffected(); count > 0 {
		n.logger.Info("Pruned notes", "count", count)
	}
	return nil
}

func scanNote(rows *sql.Rows) (note, error) {
	var out note
	err := rows.Scan(&out.ID, &out.Body, &out.CreatedAt)
	return out, err
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	b := majordome.New(
		majordome.WithLogger(logger),
		majordome.WithFeeders(
			feeders.Env(),
			feeders.Optional(feeders.DotEnv(".env")),
			feeders.Optional(feeders.Yaml("config.yaml")),
		),
		majordome.WithMetrics(prometheus.DefaultRegisterer),
	)

	ctx := context.Background()
	if err := b.Add(ctx, notesPointer); err != nil {
		logger.Error("Failed to load modules", "error", err)
		os.Exit(1)
	}

	app, err := b.Build(ctx)
	if err != nil {
		logger.Error("Failed to start application", "error", err)
		os.Exit(1)
	}

	app.WaitUntil(ctx, false)

	stopCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Error("Application did not stop cleanly", "error", err)
		os.Exit(1)
	}
}
