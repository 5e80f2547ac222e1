// Package server binds the query operators to HTTP endpoints. Routing is
// thin: handlers parse coordinates, fan out to the opened databases, and
// map records onto JSON DTOs.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/clinvar"
	"github.com/annokv/annokv/internal/dbsnp"
	"github.com/annokv/annokv/internal/freqs"
	"github.com/annokv/annokv/internal/genes"
	"github.com/annokv/annokv/internal/gnomad"
	"github.com/annokv/annokv/internal/helix"
	"github.com/annokv/annokv/internal/tsvio"
)

// Config names the databases the server exposes. Every path is optional;
// missing datasets contribute null to the variant annotation bundle and are
// left out of range results.
type Config struct {
	Addr string
	// RequestTimeout bounds each request.
	RequestTimeout time.Duration
	// RateLimit bounds requests per second (0 disables limiting).
	RateLimit float64

	PathGenes         string
	PathGnomadNuclear string
	PathGnomadMtdna   string
	PathGnomadSv      string
	PathHelix         string
	PathClinvar       string
	PathClinvarSv     string
	PathDbsnp         string
	PathFreqs         string
	PathTsv           string
	// TsvCF is the column family of the TSV database.
	TsvCF string
}

// Server holds the opened databases and the router.
type Server struct {
	cfg    Config
	logger *zap.Logger

	genesDB     *genes.DB
	nuclearDB   *gnomad.NuclearDB
	mtdnaDB     *gnomad.MtdnaDB
	svDB        *gnomad.SvDB
	helixDB     *helix.DB
	clinvarDB   *clinvar.MinimalDB
	clinvarSvDB *clinvar.SvDB
	dbsnpDB     *dbsnp.DB
	freqsDB     *freqs.DB
	tsvDB       *tsvio.DB
}

// New opens all configured databases read-only.
func New(cfg Config, logger *zap.Logger) (*Server, error) {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	s := &Server{cfg: cfg, logger: logger}

	type opener struct {
		path string
		open func(string) error
	}
	openers := []opener{
		{cfg.PathGenes, func(p string) error { var err error; s.genesDB, err = genes.Open(p); return err }},
		{cfg.PathGnomadNuclear, func(p string) error { var err error; s.nuclearDB, err = gnomad.OpenNuclear(p); return err }},
		{cfg.PathGnomadMtdna, func(p string) error { var err error; s.mtdnaDB, err = gnomad.OpenMtdna(p); return err }},
		{cfg.PathGnomadSv, func(p string) error { var err error; s.svDB, err = gnomad.OpenSv(p); return err }},
		{cfg.PathHelix, func(p string) error { var err error; s.helixDB, err = helix.Open(p); return err }},
		{cfg.PathClinvar, func(p string) error { var err error; s.clinvarDB, err = clinvar.OpenMinimal(p); return err }},
		{cfg.PathClinvarSv, func(p string) error { var err error; s.clinvarSvDB, err = clinvar.OpenSv(p); return err }},
		{cfg.PathDbsnp, func(p string) error { var err error; s.dbsnpDB, err = dbsnp.Open(p); return err }},
		{cfg.PathFreqs, func(p string) error { var err error; s.freqsDB, err = freqs.Open(p); return err }},
		{cfg.PathTsv, func(p string) error { var err error; s.tsvDB, err = tsvio.Open(p, cfg.TsvCF); return err }},
	}
	for _, o := range openers {
		if o.path == "" {
			continue
		}
		if err := o.open(o.path); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close releases all database handles.
func (s *Server) Close() {
	if s.genesDB != nil {
		s.genesDB.Close()
	}
	if s.nuclearDB != nil {
		s.nuclearDB.Close()
	}
	if s.mtdnaDB != nil {
		s.mtdnaDB.Close()
	}
	if s.svDB != nil {
		s.svDB.Close()
	}
	if s.helixDB != nil {
		s.helixDB.Close()
	}
	if s.clinvarDB != nil {
		s.clinvarDB.Close()
	}
	if s.clinvarSvDB != nil {
		s.clinvarSvDB.Close()
	}
	if s.dbsnpDB != nil {
		s.dbsnpDB.Close()
	}
	if s.freqsDB != nil {
		s.freqsDB.Close()
	}
	if s.tsvDB != nil {
		s.tsvDB.Close()
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if s.cfg.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(s.cfg.RateLimit), int(s.cfg.RateLimit)+1)
		router.Use(func(c *gin.Context) {
			if !limiter.Allow() {
				c.AbortWithStatusJSON(http.StatusTooManyRequests,
					gin.H{"error": "rate limit exceeded"})
				return
			}
			c.Next()
		})
	}
	router.Use(s.deadline())

	router.GET("/annos/variant", s.handleAnnosVariant)
	router.GET("/annos/range", s.handleAnnosRange)
	router.GET("/annos/db-info", s.handleDBInfo)
	router.GET("/genes/lookup", s.handleGeneLookup)
	router.GET("/genes/info", s.handleGeneInfo)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// deadline imposes the request-level timeout the engine itself does not.
func (s *Server) deadline() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	s.logger.Info("serving", zap.String("addr", s.cfg.Addr))
	return s.Router().Run(s.cfg.Addr)
}

// abortError maps error kinds onto HTTP statuses.
func abortError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, annoerr.ErrInvalidInput), errors.Is(err, annoerr.ErrAssemblyMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, annoerr.ErrNotFound):
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
