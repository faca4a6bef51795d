package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketstream/internal/domain"
	"marketstream/internal/infra"
	"marketstream/internal/infra/cache"
	"marketstream/internal/infra/storage"
	"marketstream/internal/market"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes the websocket subscription entry point and the REST
// endpoints around the stream hubs.
type Server struct {
	cfg      *infra.Config
	registry *market.Registry
	store    *storage.Storage
	cache    *cache.Cache
	metrics  *infra.Metrics
	engine   *gin.Engine
}

// NewServer wires the HTTP routes. store and kv may be nil when the
// corresponding collaborator is not configured.
func NewServer(cfg *infra.Config, registry *market.Registry, store *storage.Storage, kv *cache.Cache, metrics *infra.Metrics) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		registry: registry,
		store:    store,
		cache:    kv,
		metrics:  metrics,
		engine:   gin.Default(),
	}

	s.engine.Use(corsMiddleware())
	s.setupRoutes()
	return s
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.getHealth)
	s.engine.GET("/streams", s.getStreams)

	s.engine.GET("/ohlc", s.getOHLC)
	s.engine.POST("/ohlc", s.createOHLC)
	s.engine.GET("/live-price", s.getLivePrice)
	s.engine.GET("/last-candle", s.getLastCandle)

	s.engine.GET("/ws/market", s.handleMarketWS)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	slog.Info("server started", slog.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// handleMarketWS is the subscription entry point. The timeframe is checked
// against the fixed table before any hub lookup; an unsupported one closes
// the socket with policy violation (1008) immediately after the upgrade.
func (s *Server) handleMarketWS(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", "BTCUSDT")
	timeframe := strings.ToLower(c.DefaultQuery("timeframe", "5m"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	hub, err := s.registry.Hub(symbol, timeframe)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedTimeframe) {
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unsupported timeframe")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		}
		conn.Close()
		return
	}

	client := NewClient(conn)
	hub.Connect(client)
	defer func() {
		hub.Disconnect(client)
		conn.Close()
	}()

	stopPing := make(chan struct{})
	defer close(stopPing)
	go client.pingLoop(stopPing)

	client.drain()
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"hubs":    len(s.registry.Snapshot()),
		"metrics": s.metrics.Snapshot(),
	})
}

// getStreams reports each hub's subscriber count, task state, and the
// recent-payload diagnostics ring.
func (s *Server) getStreams(c *gin.Context) {
	hubs := s.registry.Snapshot()
	streams := make([]gin.H, 0, len(hubs))
	for _, h := range hubs {
		streams = append(streams, gin.H{
			"symbol":          h.Symbol(),
			"timeframe":       h.Timeframe(),
			"clients":         h.ClientCount(),
			"streaming":       h.Streaming(),
			"recent_payloads": h.RecentPayloads(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"streams": streams})
}

type ohlcCreateRequest struct {
	Symbol      string  `json:"symbol" binding:"required"`
	Timeframe   string  `json:"timeframe"`
	BucketStart int64   `json:"bucket_start" binding:"required"`
	Open        float64 `json:"open" binding:"required,gt=0"`
	High        float64 `json:"high" binding:"required,gt=0"`
	Low         float64 `json:"low" binding:"required,gt=0"`
	Close       float64 `json:"close" binding:"required,gt=0"`
	Volume      float64 `json:"volume" binding:"gte=0"`
}

func (s *Server) createOHLC(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not configured"})
		return
	}

	var req ohlcCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Timeframe == "" {
		req.Timeframe = "1m"
	}

	row := &domain.CandleRow{
		Symbol:      strings.ToUpper(req.Symbol),
		Timeframe:   req.Timeframe,
		BucketStart: req.BucketStart,
		Open:        req.Open,
		High:        req.High,
		Low:         req.Low,
		Close:       req.Close,
		Volume:      req.Volume,
	}
	if err := s.store.InsertCandle(c.Request.Context(), row); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OHLC inserted"})
}

func (s *Server) getOHLC(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not configured"})
		return
	}

	symbol := strings.ToUpper(c.Query("symbol"))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	rows, err := s.store.ListCandles(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getLivePrice(c *gin.Context) {
	symbol := strings.ToUpper(c.DefaultQuery("symbol", "BTCUSDT"))
	if s.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"symbol": symbol, "price": nil, "status": "unavailable"})
		return
	}

	value, err := s.cache.LastPrice(c.Request.Context(), symbol)
	if err != nil {
		if cache.IsMiss(err) {
			c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": nil, "status": "missing"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	price, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": value, "status": "invalid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": price, "status": "ok"})
}

func (s *Server) getLastCandle(c *gin.Context) {
	symbol := strings.ToUpper(c.DefaultQuery("symbol", "BTCUSDT"))
	if s.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"symbol": symbol, "candle": nil, "status": "unavailable"})
		return
	}

	value, err := s.cache.LastCandle(c.Request.Context(), symbol)
	if err != nil {
		if cache.IsMiss(err) {
			c.JSON(http.StatusOK, gin.H{"symbol": symbol, "candle": nil, "status": "missing"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var candle domain.CandleState
	if err := json.Unmarshal([]byte(value), &candle); err != nil {
		c.JSON(http.StatusOK, gin.H{"symbol": symbol, "candle": value, "status": "invalid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "candle": candle, "status": "ok"})
}
