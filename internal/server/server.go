// Package server exposes a catalog over HTTP. A single mutex serializes every
// request against the catalog.
package server

import (
	"bytes"
	"errors"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"gatorlib/internal/catalog"
	"gatorlib/internal/command"
	"gatorlib/internal/config"
	"gatorlib/internal/logging"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	mu  sync.Mutex
	cat *catalog.Catalog
	log logging.Logger
	app *fiber.App
}

// New builds the fiber app around cat. cfg supplies timeouts and body limit.
func New(cat *catalog.Catalog, cfg config.ServerConfig, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Server{cat: cat, log: log}
	s.app = fiber.New(fiber.Config{
		AppName:               "gatorlib",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(s.requestID)
	s.routes(s.app)
	return s
}

// App returns the underlying fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving addr until Shutdown is called or the listener fails.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) routes(r fiber.Router) {
	r.Get("/healthz", s.health)

	api := r.Group("/api")
	api.Get("/stats", s.stats)
	api.Get("/events", s.events)
	api.Post("/commands", s.commands)

	books := api.Group("/books")
	books.Post("/", s.insertBook)
	books.Get("/", s.listBooks)
	books.Get("/:id", s.getBook)
	books.Delete("/:id", s.deleteBook)
	books.Get("/:id/closest", s.closestBooks)
	books.Post("/:id/borrow", s.borrowBook)
	books.Post("/:id/return", s.returnBook)
	books.Delete("/:id/reservations/:patron", s.cancelReservation)
}

// requestID tags the response (and the request log line) with the caller's
// X-Request-ID, or a fresh uuid when none was sent.
func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDHeader, id)
	c.Locals("log", s.log.WithRequestID(id))

	if err := c.Next(); err != nil {
		if herr := s.handleError(c, err); herr != nil {
			return herr
		}
	}
	logger(c).Info("request", "method", c.Method(), "path", c.Path(), "status", c.Response().StatusCode())
	return nil
}

func logger(c *fiber.Ctx) logging.Logger {
	if l, ok := c.Locals("log").(logging.Logger); ok {
		return l
	}
	return logging.NewNop()
}

// handleError maps catalog errors to statuses and fiber errors to their code.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	kind := catalog.KindOf(err)
	status := fiber.StatusInternalServerError
	switch kind {
	case catalog.KindNotFound:
		status = fiber.StatusNotFound
	case catalog.KindAlreadyExists, catalog.KindInvalidState, catalog.KindCapacityExceeded:
		status = fiber.StatusConflict
	default:
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	body := fiber.Map{"error": err.Error()}
	if kind != catalog.KindNone && kind != catalog.KindUnknown {
		body["kind"] = kind.String()
	}
	if status >= fiber.StatusInternalServerError {
		logger(c).Error("request failed", "path", c.Path(), "err", err)
	}
	return c.Status(status).JSON(body)
}

/*************** handlers ***************/

type bookRequest struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available *bool  `json:"available"`
}

func (s *Server) insertBook(c *fiber.Ctx) error {
	var body bookRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	available := true
	if body.Available != nil {
		available = *body.Available
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cat.Insert(body.ID, body.Title, body.Author, available); err != nil {
		return err
	}
	snap, err := s.cat.Describe(body.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(snap)
}

func (s *Server) getBook(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.cat.Describe(id)
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (s *Server) listBooks(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lo, hi, ok := s.cat.Bounds()
	if !ok {
		return c.JSON(fiber.Map{"books": []catalog.Snapshot{}})
	}
	var err error
	if q := c.Query("from"); q != "" {
		if lo, err = strconv.Atoi(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "from must be an integer")
		}
	}
	if q := c.Query("to"); q != "" {
		if hi, err = strconv.Atoi(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "to must be an integer")
		}
	}
	books := s.cat.DescribeRange(lo, hi)
	if books == nil {
		books = []catalog.Snapshot{}
	}
	return c.JSON(fiber.Map{"books": books})
}

func (s *Server) deleteBook(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cancelled, err := s.cat.Delete(id)
	if err != nil {
		return err
	}
	if cancelled == nil {
		cancelled = []int{}
	}
	return c.JSON(fiber.Map{"id": id, "cancelled": cancelled})
}

func (s *Server) closestBooks(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	books := s.cat.NearestMatch(id)
	if books == nil {
		books = []catalog.Snapshot{}
	}
	return c.JSON(fiber.Map{"books": books})
}

type patronRequest struct {
	Patron   int `json:"patron"`
	Priority int `json:"priority"`
}

func (s *Server) borrowBook(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var body patronRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.cat.Borrow(body.Patron, id, body.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": id, "patron": body.Patron, "status": out.String()})
}

func (s *Server) returnBook(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var body patronRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.cat.Return(body.Patron, id)
	if err != nil {
		return err
	}
	resp := fiber.Map{"id": id, "returned_by": body.Patron, "allotted_to": nil}
	if res.Allotted {
		resp["allotted_to"] = res.AllottedTo
	}
	return c.JSON(resp)
}

func (s *Server) cancelReservation(c *fiber.Ctx) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	patron, err := intParam(c, "patron")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cat.CancelReservation(patron, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) stats(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := fiber.Map{
		"books":                s.cat.Len(),
		"color_flips":          s.cat.ColorFlipCount(),
		"reservation_capacity": s.cat.ReservationCapacity(),
	}
	if lo, hi, ok := s.cat.Bounds(); ok {
		resp["first_id"] = lo
		resp["last_id"] = hi
	}
	return c.JSON(resp)
}

func (s *Server) events(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.cat.Events()
	if ev == nil {
		ev = []catalog.Event{}
	}
	return c.JSON(fiber.Map{"events": ev})
}

// commands runs the request body as a script and returns its report lines.
// Malformed lines are skipped and counted in X-Skipped-Lines.
func (s *Server) commands(c *fiber.Ctx) error {
	var out bytes.Buffer
	s.mu.Lock()
	in := command.New(s.cat, command.WithLogger(logger(c)))
	st, err := in.Run(c.UserContext(), bytes.NewReader(c.Body()), &out)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	c.Set("X-Skipped-Lines", strconv.Itoa(st.Skipped))
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(out.Bytes())
}

func (s *Server) health(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cat.Verify(); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func intParam(c *fiber.Ctx, name string) (int, error) {
	v, err := strconv.Atoi(c.Params(name))
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" must be an integer")
	}
	return v, nil
}
