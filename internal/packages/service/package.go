package service

import (
	"context"
	"errors"
	"time"

	"classbook/internal/events"
	packageserrors "classbook/internal/packages/errors"
	"classbook/internal/packages/repository"
	"classbook/internal/packages/validator"
	"classbook/internal/payments"
	"classbook/pkg/clock"
	"classbook/pkg/config"
	apperrors "classbook/pkg/errors"
	"classbook/pkg/locale"
	"classbook/pkg/model"
	"classbook/pkg/sanitizer"

	"github.com/google/uuid"
)

type PackageService interface {
	Create(ctx context.Context, pkg *model.Package) error
	ListAvailable(ctx context.Context, country string) ([]*model.Package, error)
	ListMine(ctx context.Context, userID string) ([]*model.UserPackage, error)
	Purchase(ctx context.Context, userID, packageID string, req *model.PurchaseRequest) (*model.UserPackage, error)
}

type packageService struct {
	packages     repository.PackageRepository
	userPackages repository.UserPackageRepository
	gateway      payments.Gateway
	publisher    events.Publisher
	validator    *validator.PackageValidator
	clock        clock.Clock
	cfg          *config.Config
}

func NewPackageService(
	packages repository.PackageRepository,
	userPackages repository.UserPackageRepository,
	gateway payments.Gateway,
	publisher events.Publisher,
	validator *validator.PackageValidator,
	clk clock.Clock,
	cfg *config.Config,
) PackageService {
	return &packageService{
		packages:     packages,
		userPackages: userPackages,
		gateway:      gateway,
		publisher:    publisher,
		validator:    validator,
		clock:        clk,
		cfg:          cfg,
	}
}

func (s *packageService) Create(ctx context.Context, pkg *model.Package) error {
	pkg.Name = sanitizer.ClassName(pkg.Name)
	if code, ok := locale.ParseCountry(pkg.Country); ok {
		pkg.Country = code
	}

	if err := s.validator.Validate(pkg); err != nil {
		s.cfg.Log.Warn("Package validation failed", "name", pkg.Name, "error", err)
		return apperrors.Validation("Package validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.packages.Create(ctx, pkg); err != nil {
		s.cfg.Log.Error("Failed to create package", "name", pkg.Name, "error", err)
		return apperrors.Internal("Failed to create package", err)
	}

	s.cfg.Log.Info("Package created successfully",
		"id", pkg.ID,
		"name", pkg.Name,
		"country", pkg.Country,
		"credits", pkg.Credits,
	)
	return nil
}

func (s *packageService) ListAvailable(ctx context.Context, country string) ([]*model.Package, error) {
	code, ok := locale.ParseCountry(country)
	if !ok {
		return nil, apperrors.InvalidInput("Unsupported country: " + country)
	}

	pkgs, err := s.packages.FindByCountry(ctx, code)
	if err != nil {
		s.cfg.Log.Error("Failed to list packages", "country", code, "error", err)
		return nil, apperrors.Internal("Failed to retrieve packages", err)
	}
	return pkgs, nil
}

// ListMine returns the user's entries with the status they would have right
// now, so an entry past its expiry reads EXPIRED before the nightly job runs.
func (s *packageService) ListMine(ctx context.Context, userID string) ([]*model.UserPackage, error) {
	ups, err := s.userPackages.FindByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to list user packages", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve packages", err)
	}

	now := s.clock.Now()
	for _, up := range ups {
		up.Status = up.EffectiveStatus(now)
	}
	return ups, nil
}

func (s *packageService) Purchase(ctx context.Context, userID, packageID string, req *model.PurchaseRequest) (*model.UserPackage, error) {
	req.CardToken = sanitizer.Token(req.CardToken)
	if err := s.validator.ValidatePurchase(req); err != nil {
		return nil, apperrors.Validation("Purchase validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	pkg, err := s.packages.FindByID(ctx, packageID)
	if err != nil {
		switch {
		case errors.Is(err, packageserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Package", packageID)
		case errors.Is(err, packageserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid package ID format")
		}
		s.cfg.Log.Error("Failed to get package", "id", packageID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve package", err)
	}

	charge, err := s.gateway.Charge(ctx, payments.ChargeRequest{
		OrderID:   uuid.NewString(),
		UserID:    userID,
		Amount:    pkg.Price,
		Currency:  locale.Countries[pkg.Country].Currency,
		CardToken: req.CardToken,
		ItemID:    pkg.ID,
		ItemName:  pkg.Name,
	})
	if err != nil {
		if errors.Is(err, payments.ErrDeclined) {
			s.cfg.Log.Info("Payment declined", "user_id", userID, "package_id", pkg.ID)
			return nil, apperrors.Upstream("Payment declined", packageserrors.ErrPaymentDeclined)
		}
		s.cfg.Log.Error("Payment provider failed", "user_id", userID, "package_id", pkg.ID, "error", err)
		return nil, apperrors.Upstream("Payment provider unavailable", err)
	}

	now := s.clock.Now()
	up := &model.UserPackage{
		UserID:           userID,
		PackageID:        pkg.ID,
		PackageName:      pkg.Name,
		Country:          pkg.Country,
		RemainingCredits: pkg.Credits,
		ExpiryDate:       now.Add(time.Duration(pkg.ValidDays) * 24 * time.Hour),
		Status:           model.PackageActive,
		PaymentRef:       charge.Reference,
		PurchasedAt:      now,
	}
	if err := s.userPackages.Create(ctx, up); err != nil {
		// The charge went through; the reference is what support needs to
		// refund or re-issue the entry by hand.
		s.cfg.Log.Error("Failed to store purchased package",
			"user_id", userID,
			"package_id", pkg.ID,
			"payment_ref", charge.Reference,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to store purchased package", err)
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type:          events.TypePackagePurchased,
		UserID:        userID,
		UserPackageID: up.ID,
		OccurredAt:    now.UTC(),
	}); err != nil {
		s.cfg.Log.Warn("Failed to publish package event", "user_package_id", up.ID, "error", err)
	}

	s.cfg.Log.Info("Package purchased",
		"user_id", userID,
		"package_id", pkg.ID,
		"user_package_id", up.ID,
		"credits", up.RemainingCredits,
		"expiry_date", up.ExpiryDate,
	)
	return up, nil
}
