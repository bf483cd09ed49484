package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SimulatorConfig holds the simulator configuration
type SimulatorConfig struct {
	ServerURL    string // HTTP API base, e.g. http://localhost:8080
	FeedURL      string // websocket feed, e.g. ws://localhost:8080/ws/market
	Email        string
	Password     string
	Region       string
	Source       string
	ProduceKWh   float64
	OfferKWh     int64
	PricePerUnit int64
	Interval     time.Duration
}

// Simulator drives a single market participant against the API: it registers
// an account and region, logs production readings on a timer, keeps an offer
// on the book, and mirrors the live market feed to its log.
type Simulator struct {
	config   *SimulatorConfig
	client   *http.Client
	log      *zap.Logger
	token    string
	identity string

	feedConn *websocket.Conn

	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewSimulator creates a new participant simulator
func NewSimulator(config *SimulatorConfig, log *zap.Logger) *Simulator {
	return &Simulator{
		config:   config,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Connect registers (or logs in) the account, joins the configured region and
// opens the websocket market feed.
func (s *Simulator) Connect() error {
	if err := s.authenticate(); err != nil {
		return err
	}

	// registering an already-registered identity fails; tolerate it so the
	// simulator can be restarted
	if err := s.post("/api/v1/registry/register", map[string]interface{}{
		"region": s.config.Region,
	}, nil); err != nil {
		s.log.Warn("Region registration skipped", zap.Error(err))
	}

	if err := s.openFeed(); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.readFeed()

	s.log.Info("Simulator connected",
		zap.String("identity", s.identity),
		zap.String("region", s.config.Region),
	)
	return nil
}

// Run produces energy and maintains an offer until stopped.
func (s *Simulator) Run() {
	s.wg.Add(1)
	go s.produceLoop()
}

// Stop stops the simulator
func (s *Simulator) Stop() {
	close(s.stopChan)
	if s.feedConn != nil {
		s.feedConn.Close()
	}
	s.wg.Wait()
}

func (s *Simulator) authenticate() error {
	var resp struct {
		Token string `json:"token"`
		User  struct {
			Identity string `json:"identity"`
		} `json:"user"`
	}
	err := s.post("/api/v1/auth/register", map[string]interface{}{
		"email":    s.config.Email,
		"password": s.config.Password,
	}, &resp)
	if err != nil {
		// account may already exist, fall back to login
		loginErr := s.post("/api/v1/auth/login", map[string]interface{}{
			"email":    s.config.Email,
			"password": s.config.Password,
		}, &resp)
		if loginErr != nil {
			return fmt.Errorf("register failed (%v) and login failed: %w", err, loginErr)
		}
	}

	s.token = resp.Token
	s.identity = resp.User.Identity
	if s.identity == "" {
		var me struct {
			Identity string `json:"identity"`
		}
		if err := s.get("/api/v1/auth/me", &me); err != nil {
			return err
		}
		s.identity = me.Identity
	}
	return nil
}

func (s *Simulator) openFeed() error {
	url := fmt.Sprintf("%s?identity=%s", s.config.FeedURL, s.identity)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to market feed: %w", err)
	}
	s.feedConn = conn
	return nil
}

// readFeed mirrors market events onto the simulator log.
func (s *Simulator) readFeed() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		default:
			_, message, err := s.feedConn.ReadMessage()
			if err != nil {
				select {
				case <-s.stopChan:
				default:
					s.log.Error("Feed read error", zap.Error(err))
				}
				return
			}
			var event struct {
				Subject string          `json:"subject"`
				Event   json.RawMessage `json:"event"`
			}
			if err := json.Unmarshal(message, &event); err != nil {
				continue
			}
			s.log.Info("Market event",
				zap.String("subject", event.Subject),
				zap.ByteString("event", event.Event),
			)
		}
	}
}

func (s *Simulator) produceLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.produce()
			s.maintainOffer()
		}
	}
}

// produce logs one production reading with a little jitter around the
// configured amount.
func (s *Simulator) produce() {
	amount := s.config.ProduceKWh * (0.8 + 0.4*rand.Float64())

	var reading struct {
		ID    string `json:"id"`
		Index int    `json:"index"`
	}
	err := s.post("/api/v1/metering/production", map[string]interface{}{
		"amount":        amount,
		"source":        s.config.Source,
		"carbon_offset": amount * 0.4,
	}, &reading)
	if err != nil {
		s.log.Error("Failed to log production", zap.Error(err))
		return
	}
	s.log.Info("Production logged",
		zap.Float64("amount_kwh", amount),
		zap.Int("index", reading.Index),
	)
}

// maintainOffer keeps exactly one active offer on the book.
func (s *Simulator) maintainOffer() {
	var mine struct {
		Offers []uint64 `json:"offers"`
	}
	if err := s.get("/api/v1/market/offers/mine", &mine); err != nil {
		s.log.Error("Failed to list offers", zap.Error(err))
		return
	}
	for _, id := range mine.Offers {
		var offer struct {
			Status string `json:"status"`
		}
		if err := s.get(fmt.Sprintf("/api/v1/market/offers/%d", id), &offer); err != nil {
			continue
		}
		if offer.Status == "Active" {
			return
		}
	}

	var created struct {
		ID uint64 `json:"id"`
	}
	err := s.post("/api/v1/market/offers", map[string]interface{}{
		"energy_amount":   s.config.OfferKWh,
		"price_per_unit":  s.config.PricePerUnit,
		"region":          s.config.Region,
		"min_purchase":    s.config.OfferKWh / 10,
		"expiration_time": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	}, &created)
	if err != nil {
		s.log.Error("Failed to create offer", zap.Error(err))
		return
	}
	s.log.Info("Offer created", zap.Uint64("offer_id", created.ID))
}

// AcceptOffer buys energy from an open offer, paying exactly the asking price.
func (s *Simulator) AcceptOffer(offerID uint64, energy int64) error {
	var offer struct {
		PricePerUnit int64 `json:"price_per_unit"`
	}
	if err := s.get(fmt.Sprintf("/api/v1/market/offers/%d", offerID), &offer); err != nil {
		return err
	}
	return s.post(fmt.Sprintf("/api/v1/market/offers/%d/accept", offerID), map[string]interface{}{
		"energy_amount": energy,
		"payment":       energy * offer.PricePerUnit,
	}, nil)
}

// Deposit credits the simulator's wallet (development mode on the server).
func (s *Simulator) Deposit(amount int64) error {
	return s.post("/api/v1/wallet/deposit", map[string]interface{}{
		"amount": amount,
	}, nil)
}

// Balance returns the wallet balance.
func (s *Simulator) Balance() (int64, error) {
	var resp struct {
		Balance int64 `json:"balance"`
	}
	err := s.get("/api/v1/wallet/balance", &resp)
	return resp.Balance, err
}

// --- HTTP helpers ---

func (s *Simulator) post(path string, body map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, s.config.ServerURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, out)
}

func (s *Simulator) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, s.config.ServerURL+path, nil)
	if err != nil {
		return err
	}
	return s.do(req, out)
}

func (s *Simulator) do(req *http.Request, out interface{}) error {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, apiErr.Error)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
