package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ksred/nrm-api/internal/auth"
	"github.com/ksred/nrm-api/internal/batch"
	"github.com/ksred/nrm-api/internal/clearing"
	"github.com/ksred/nrm-api/internal/config"
	"github.com/ksred/nrm-api/internal/database"
	"github.com/ksred/nrm-api/internal/nrm"
	"github.com/ksred/nrm-api/internal/offers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	numWorkers    = 4
	tradingDate   = "2024-06-18"
	numPeriods    = 8
	serverAddress = "http://localhost:8080"
)

var (
	participants = []string{"GENA", "GENB", "GENC", "ILCO", "STOR"}
	reserveTypes = []string{"FIR", "SIR"}

	northLocations = []string{"OTA2201", "WKM2201", "HLY2201", "HAY2201"}
	southLocations = []string{"BEN2201", "ISL2201", "MAN2201", "TWI2201"}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the clearing API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient(cfg *config.Config) (*simulationClient, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":   {name: "Authentication"},
			"upload": {name: "Upload Offers"},
			"nrm":    {name: "NRM Clearing"},
			"batch":  {name: "Batch Clearing"},
		},
	}

	token, err := sc.authenticate(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate(cfg *config.Config) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    cfg.Auth.APIKey,
		"api_secret": cfg.Auth.APISecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// post sends an authenticated POST request and decodes the standard
// response envelope into out.
func (sc *simulationClient) post(route, path string, payload, out interface{}) error {
	start := time.Now()
	defer func() {
		sc.stats[route].addDuration(time.Since(start))
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", sc.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		sc.stats[route].failures++
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("response", string(respBody)).Str("path", path).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		sc.stats[route].failures++
		return fmt.Errorf("%s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}

	envelope := struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}

	return nil
}

// generateOfferRows builds one wide submission row per participant,
// location, and trading period, with randomized IL, PLSR, and energy
// bands.
func generateOfferRows() []offers.WideOfferRow {
	var rows []offers.WideOfferRow
	locations := append(append([]string{}, northLocations...), southLocations...)

	for period := 1; period <= numPeriods; period++ {
		for i, location := range locations {
			participant := participants[i%len(participants)]
			row := offers.WideOfferRow{
				TradingDate:   tradingDate,
				TradingPeriod: period,
				ParticipantID: participant,
				LocationID:    location,
				Bands:         make(map[string]float64),
			}

			// Two IL bands per reserve market
			for band := 1; band <= 2; band++ {
				for _, marker := range []string{"6S", "60S"} {
					row.Bands[fmt.Sprintf("Band%d %s Price", band, marker)] = float64(rand.Intn(200)) / 10
					row.Bands[fmt.Sprintf("Band%d %s Max", band, marker)] = float64(rand.Intn(50))
				}
			}

			// One PLSR band per reserve market
			for _, marker := range []string{"6S", "60S"} {
				row.Bands[fmt.Sprintf("Band1 Plsr %s Price", marker)] = float64(rand.Intn(300)) / 10
				row.Bands[fmt.Sprintf("Band1 Plsr %s Max", marker)] = float64(rand.Intn(40))
			}

			rows = append(rows, row)
		}
	}

	return rows
}

// main runs the clearing simulation
// It starts a local API server, uploads a generated offer book, and
// clears it both per interval and as one batch
func main() {
	// Start the server in a goroutine
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	go func() {
		if err := startServer(cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	// Initialize simulation client
	simClient, err := newSimulationClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	startTime := time.Now()

	// Upload the generated offer book
	rows := generateOfferRows()
	var upload offers.UploadResult
	if err := simClient.post("upload", "/api/v1/offers", rows, &upload); err != nil {
		log.Fatal().Err(err).Msg("Failed to upload offers")
	}
	log.Info().
		Int("rows", upload.RowsReceived).
		Int("offers", upload.OffersCreated).
		Msg("Offer book uploaded")

	// Clear every interval/reserve combination through the NRM endpoint
	type comboKey struct {
		period      int
		reserveType string
	}
	combos := make(chan comboKey, numPeriods*len(reserveTypes))
	for period := 1; period <= numPeriods; period++ {
		for _, rtype := range reserveTypes {
			combos <- comboKey{period: period, reserveType: rtype}
		}
	}
	close(combos)

	stats := struct {
		mu          sync.Mutex
		Cleared     int
		Failed      int
		TotalMW     float64
		PriceByType map[string][]float64
	}{
		PriceByType: make(map[string][]float64),
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for combo := range combos {
				request := nrm.NRMRequest{
					TradingDate:         tradingDate,
					TradingPeriod:       combo.period,
					ReserveType:         combo.reserveType,
					NationalRequirement: float64(rand.Intn(200) + 50),
					NorthMinimum:        float64(rand.Intn(30)),
					SouthMinimum:        float64(rand.Intn(30)),
				}

				var response nrm.NRMResponse
				if err := simClient.post("nrm", "/api/v1/internal/nrm", request, &response); err != nil {
					log.Error().Err(err).
						Int("trading_period", combo.period).
						Str("reserve_type", combo.reserveType).
						Msg("Failed to clear interval")
					stats.mu.Lock()
					stats.Failed++
					stats.mu.Unlock()
					continue
				}

				stats.mu.Lock()
				stats.Cleared++
				if response.Result != nil {
					stats.TotalMW += response.Result.TotalCleared()
					stats.PriceByType[combo.reserveType] = append(
						stats.PriceByType[combo.reserveType], response.Result.NationalPrice)
				}
				stats.mu.Unlock()

				log.Info().
					Str("run_id", response.RunID).
					Int("trading_period", combo.period).
					Str("reserve_type", combo.reserveType).
					Msg("Interval cleared")
			}
		}()
	}
	wg.Wait()

	// Run the same book as one batch, leaving one combination without a
	// requirement entry to exercise the skip reporting
	var batchRequest batch.BatchRequest
	for period := 1; period <= numPeriods; period++ {
		for _, rtype := range reserveTypes {
			if period == numPeriods && rtype == "SIR" {
				continue
			}
			batchRequest.Requirements = append(batchRequest.Requirements, batch.RequirementEntry{
				TradingDate:         tradingDate,
				TradingPeriod:       period,
				ReserveType:         rtype,
				NationalRequirement: float64(rand.Intn(200) + 50),
				NorthMinimum:        float64(rand.Intn(30)),
				SouthMinimum:        float64(rand.Intn(30)),
			})
		}
	}

	var batchResponse batch.BatchResponse
	if err := simClient.post("batch", "/api/v1/internal/batch", batchRequest, &batchResponse); err != nil {
		log.Fatal().Err(err).Msg("Failed to run batch clearing")
	}

	log.Info().
		Str("batch_id", batchResponse.BatchID).
		Int("results", len(batchResponse.Report.Results)).
		Int("skipped", len(batchResponse.Report.Skipped)).
		Msg("Batch clearing completed")

	// Print summary
	duration := time.Since(startTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("CLEARING SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Offer rows:          %d
Normalized offers:   %d
Intervals cleared:   %d
Intervals failed:    %d
Total cleared MW:    %.1f
Batch results:       %d
Batch skipped:       %d
Duration:            %v

Mean national price by reserve type
-----------------------------------
`, upload.RowsReceived, upload.OffersCreated, stats.Cleared, stats.Failed,
		stats.TotalMW, len(batchResponse.Report.Results), len(batchResponse.Report.Skipped),
		duration.Round(time.Millisecond))

	for rtype, prices := range stats.PriceByType {
		var sum float64
		for _, p := range prices {
			sum += p
		}
		fmt.Printf("%-4s: $%.2f/MW over %d intervals\n", rtype, sum/float64(len(prices)), len(prices))
	}

	for _, skipped := range batchResponse.Report.Skipped {
		fmt.Printf("skipped: %s period %d %s (%s)\n",
			skipped.Key.TradingDate, skipped.Key.TradingPeriod, skipped.Key.ReserveType, skipped.Reason)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	simClient.printPerformanceStats()
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// startServer initializes and starts the clearing API server
// Sets up all required services, handlers and routes
func startServer(cfg *config.Config) error {
	// Use a throwaway in-memory database for each simulation run
	db, err := database.NewInMemory()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	authService := auth.NewService(cfg.Auth.JWTSecret)
	authService.RegisterAPICredentials(cfg.Auth.APIKey, cfg.Auth.APISecret)

	offerService := offers.NewService(db, cfg.RegionMap())
	clearingService := clearing.NewService(db, offerService)
	nrmService := nrm.NewService(db, offerService)
	batchService := batch.NewService(db, offerService, cfg.Batch.Workers)

	// Initialize router
	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	offerHandlers := offers.NewGinHandlers(offerService)
	clearingHandlers := clearing.NewGinHandlers(clearingService)
	nrmHandlers := nrm.NewGinHandlers(nrmService)
	batchHandlers := batch.NewGinHandlers(batchService)

	// Setup routes
	setupRoutes(router, authHandlers, offerHandlers, clearingHandlers, nrmHandlers, batchHandlers)

	// Start the server
	return router.Run(":8080")
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality; the simulation server skips the rate
// limiting and auth middleware so runs measure clearing latency alone
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	offerHandlers *offers.GinHandlers,
	clearingHandlers *clearing.GinHandlers,
	nrmHandlers *nrm.GinHandlers,
	batchHandlers *batch.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Offer routes
		offerGroup := v1.Group("/offers")
		{
			offerGroup.POST("", offerHandlers.UploadOffersHandler())
			offerGroup.GET("", offerHandlers.ListOffersHandler())
		}

		// Internal routes
		internal := v1.Group("/internal")
		{
			internal.POST("/clearing", clearingHandlers.ClearHandler())
			internal.GET("/clearing/runs/:run_id", clearingHandlers.GetRunStatusHandler())
			internal.POST("/nrm", nrmHandlers.ClearNRMHandler())
			internal.GET("/nrm/runs/:run_id", nrmHandlers.GetRunStatusHandler())
			internal.POST("/batch", batchHandlers.ClearAllHandler())
			internal.GET("/batch/runs/:batch_id", batchHandlers.GetBatchStatusHandler())
		}
	}
}
