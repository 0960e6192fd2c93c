package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"inventoryflow/internal/mailer"
	"inventoryflow/internal/models"
	"inventoryflow/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultThreshold   = 10
	LowStockSubject    = "Low Stock Alert"
	defaultConcurrency = 5
	defaultSendTimeout = 10 * time.Second
)

type AlertConfig struct {
	Threshold   int
	AppName     string
	SupportMail string
	SendTimeout time.Duration
	Concurrency int
}

// LowStockAlertService scans for low stock products, emails every
// administrator and flags the products out-of-stock so the next sweep skips them.
type LowStockAlertService struct {
	productRepo      repositories.ProductRepository
	userRepo         repositories.UserRepository
	notificationRepo repositories.NotificationRepository
	sender           mailer.Sender
	cfg              AlertConfig
	logger           *zap.Logger
	now              func() time.Time
}

func NewLowStockAlertService(
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	notificationRepo repositories.NotificationRepository,
	sender mailer.Sender,
	cfg AlertConfig,
	logger *zap.Logger,
) *LowStockAlertService {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	return &LowStockAlertService{
		productRepo:      productRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		sender:           sender,
		cfg:              cfg,
		logger:           logger.Named("low-stock"),
		now:              time.Now,
	}
}

func (a *LowStockAlertService) Threshold() int {
	return a.cfg.Threshold
}

// CheckLowStock returns every product under the threshold that has not been
// flagged yet. It has no side effects.
func (a *LowStockAlertService) CheckLowStock(ctx context.Context) ([]models.LowStockItem, error) {
	items, err := a.productRepo.FindBelowThreshold(ctx, a.cfg.Threshold)
	if err != nil {
		a.logger.Error("Failed to query low stock products", zap.Int("threshold", a.cfg.Threshold), zap.Error(err))
		return nil, err
	}
	return items, nil
}

// LowStockLine renders the alert line for a single product. The name is
// written as stored, without escaping.
func LowStockLine(item models.LowStockItem) string {
	return fmt.Sprintf("\"%s\" is low in stock with only %d items.", item.Product.Name, item.Product.Stock)
}

// ComposeLowStockEmail builds the subject and body shared by every administrator.
func ComposeLowStockEmail(items []models.LowStockItem, appName, supportMail string) (string, string) {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, LowStockLine(item))
	}

	var body strings.Builder
	body.WriteString("The following products are running low on stock:\n")
	body.WriteString(strings.Join(lines, "\n"))
	body.WriteString("\n\nPlease review your inventory.\n")
	fmt.Fprintf(&body, "This notification was automatically sent from %s.\n", appName)
	fmt.Fprintf(&body, "Support email: %s\n", supportMail)
	return LowStockSubject, body.String()
}

// NotifyAdmins sends one email per administrator and records an in-app
// notification per administrator and product. Individual failures are logged
// and added to result; they never stop the remaining deliveries.
func (a *LowStockAlertService) NotifyAdmins(ctx context.Context, items []models.LowStockItem, admins []*models.User, result *models.SweepResult) {
	if len(admins) == 0 {
		a.logger.Warn("No administrators to notify", zap.Int("items", len(items)))
		return
	}

	subject, body := ComposeLowStockEmail(items, a.cfg.AppName, a.cfg.SupportMail)

	var mu sync.Mutex
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, a.cfg.Concurrency)

	for _, admin := range admins {
		wg.Add(1)
		go func(admin *models.User) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			sendErr := a.sendEmail(ctx, mailer.Email{To: admin.Email, Subject: subject, Body: body})
			created, notifyErrs := a.recordNotifications(ctx, admin, items)

			mu.Lock()
			defer mu.Unlock()
			if sendErr != nil {
				result.EmailsFailed++
				result.AddFailure(models.SweepStageNotify, admin.Email, sendErr)
				a.logger.Error("Failed to send low stock email", zap.String("recipient", admin.Email), zap.Error(sendErr))
			} else {
				result.EmailsSent++
				a.logger.Info("Low stock email sent", zap.String("recipient", admin.Email), zap.Int("items", len(items)))
			}
			result.NotificationsCreated += created
			for _, err := range notifyErrs {
				result.AddFailure(models.SweepStageNotification, admin.ID.String(), err)
			}
		}(admin)
	}

	wg.Wait()
}

func (a *LowStockAlertService) sendEmail(ctx context.Context, email mailer.Email) error {
	sendCtx, cancel := context.WithTimeout(ctx, a.cfg.SendTimeout)
	defer cancel()
	return a.sender.Send(sendCtx, email)
}

func (a *LowStockAlertService) recordNotifications(ctx context.Context, admin *models.User, items []models.LowStockItem) (int, []error) {
	if a.notificationRepo == nil {
		return 0, nil
	}

	created := 0
	var errs []error
	for _, item := range items {
		n := &models.Notification{
			ProductID:   item.Product.ID,
			Message:     LowStockLine(item),
			RecipientID: admin.ID,
			Status:      models.NotificationStatusPending,
		}
		if err := a.notificationRepo.Create(ctx, n); err != nil {
			a.logger.Warn("Failed to record notification",
				zap.String("recipient", admin.ID.String()),
				zap.String("product", item.Product.ID.String()),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		created++
	}
	return created, errs
}

// ReconcileStatuses marks every scanned product out-of-stock, one write per
// product. A failed write leaves that product eligible for the next sweep.
func (a *LowStockAlertService) ReconcileStatuses(ctx context.Context, items []models.LowStockItem, result *models.SweepResult) {
	for _, item := range items {
		if err := a.productRepo.MarkOutOfStock(ctx, item.Product.ID); err != nil {
			result.ReconcileFailed++
			result.AddFailure(models.SweepStageReconcile, item.Product.ID.String(), err)
			a.logger.Error("Failed to mark product out of stock",
				zap.String("product_id", item.Product.ID.String()),
				zap.String("product", item.Product.Name),
				zap.Error(err))
			continue
		}
		result.Reconciled++
	}
}

// RunSweep executes scan, notify and reconcile in order. Failing to read
// products or administrators aborts the sweep before anything is sent or written.
func (a *LowStockAlertService) RunSweep(ctx context.Context) (*models.SweepResult, error) {
	result := &models.SweepResult{
		ID:        uuid.New(),
		StartedAt: a.now(),
		Threshold: a.cfg.Threshold,
	}
	log := a.logger.With(zap.String("sweep_id", result.ID.String()))
	log.Info("Starting low stock sweep", zap.Int("threshold", a.cfg.Threshold))

	items, err := a.CheckLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan low stock products: %w", err)
	}
	result.Scanned = len(items)

	if len(items) == 0 {
		result.FinishedAt = a.now()
		log.Info("No low stock products found")
		return result, nil
	}

	admins, err := a.userRepo.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		log.Error("Failed to list administrators", zap.Error(err))
		return nil, fmt.Errorf("list administrators: %w", err)
	}
	result.Recipients = len(admins)

	a.NotifyAdmins(ctx, items, admins, result)
	a.ReconcileStatuses(ctx, items, result)

	result.FinishedAt = a.now()
	log.Info("Completed low stock sweep",
		zap.Int("scanned", result.Scanned),
		zap.Int("recipients", result.Recipients),
		zap.Int("emails_sent", result.EmailsSent),
		zap.Int("emails_failed", result.EmailsFailed),
		zap.Int("reconciled", result.Reconciled),
		zap.Int("reconcile_failed", result.ReconcileFailed),
		zap.Duration("duration", result.Duration()))
	return result, nil
}
