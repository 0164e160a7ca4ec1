package handler

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/amoylab/hydrowatch/internal/apiserver/database"
	"github.com/amoylab/hydrowatch/internal/apiserver/middleware"
	"github.com/amoylab/hydrowatch/internal/auth/jwt"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/amoylab/hydrowatch/internal/common/errorx"
	"github.com/amoylab/hydrowatch/internal/i18n"
	"github.com/amoylab/hydrowatch/internal/mailer"
	"github.com/amoylab/hydrowatch/internal/realtime"
	"github.com/amoylab/hydrowatch/pkg/metrics"
	"github.com/amoylab/hydrowatch/pkg/trace"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// otpTTL is how long verification and reset codes stay valid
const otpTTL = 10 * time.Minute

const otpMinutes = int(otpTTL / time.Minute)

// Options carries the collaborators of Handler
type Options struct {
	DB       database.Database
	JWT      *jwt.Service
	Auth     *middleware.Authenticator
	Errors   *errorx.ErrorHandler
	Outbox   *mailer.Outbox
	Composer *mailer.Composer
	I18n     *i18n.I18n
	Realtime *realtime.Service
	Metrics  *metrics.Metrics
	Config   *config.APIServerConfig
	Logger   *zap.Logger
}

// Handler serves every HTTP route of the API server
type Handler struct {
	db       database.Database
	jwt      *jwt.Service
	auth     *middleware.Authenticator
	errs     *errorx.ErrorHandler
	outbox   *mailer.Outbox
	composer *mailer.Composer
	tr       *i18n.I18n
	realtime *realtime.Service
	metrics  *metrics.Metrics
	cfg      *config.APIServerConfig
	logger   *zap.Logger

	now      func() time.Time
	otp      func() (string, error)
	hashCost int
	loc      *time.Location
}

func New(o Options) *Handler {
	return &Handler{
		db:       o.DB,
		jwt:      o.JWT,
		auth:     o.Auth,
		errs:     o.Errors,
		outbox:   o.Outbox,
		composer: o.Composer,
		tr:       o.I18n,
		realtime: o.Realtime,
		metrics:  o.Metrics,
		cfg:      o.Config,
		logger:   o.Logger.Named("handler"),
		now:      time.Now,
		otp:      generateOTP,
		hashCost: bcrypt.DefaultCost,
		loc:      time.Local,
	}
}

// bind decodes the JSON body and answers 400 on failure
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.errs.Respond(c, errorx.ErrInvalidInput.WithMessage("%s", bindingMessage(err)).Wrap(err))
		return false
	}
	return true
}

// bindOptional is bind for bodies that may be absent. An empty body, chunked
// or not, leaves req untouched.
func (h *Handler) bindOptional(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	h.errs.Respond(c, errorx.ErrInvalidInput.WithMessage("%s", bindingMessage(err)).Wrap(err))
	return false
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "eqfield":
		return "Passwords do not match"
	case "min":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must not be empty", field)
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// idParam parses a positive numeric route parameter
func (h *Handler) idParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		h.errs.Respond(c, errorx.Validation("Invalid %s", name))
		return 0, false
	}
	return uint(n), true
}

func (h *Handler) claims(c *gin.Context) (*jwt.Claims, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		h.errs.Respond(c, errorx.ErrUnauthorized)
	}
	return claims, ok
}

func (h *Handler) hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.hashCost)
	if err != nil {
		return "", errorx.ErrInternalServer.Wrap(err)
	}
	return string(b), nil
}

func (h *Handler) language(c *gin.Context) string {
	if h.tr == nil {
		return ""
	}
	return h.tr.LanguageFromRequest(c.Request)
}

// runWorkflow executes fn in one transaction under a span and records the outcome
func (h *Handler) runWorkflow(ctx context.Context, span, name string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	scope := trace.Tracer(cnst.TraceAPIServer).Start(ctx, span).WithAttrs(attrs...)
	defer scope.End()

	err := h.db.Transaction(scope.Ctx, fn)
	outcome := "success"
	if err != nil {
		outcome = "failed"
		scope.Fail(err)
	}
	scope.WithAttrs(attribute.String(cnst.AttrOutcome, outcome))
	h.metrics.Workflow(name, outcome)
	return err
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
