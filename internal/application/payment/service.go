// Package payment orchestrates listing fee and artwork sale checkouts and
// reconciles them with gateway webhooks.
package payment

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	appshared "github.com/thirdhand/marketplace/internal/application/shared"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

var historySort = shared.Sort{Field: "timestamp", Direction: shared.SortDesc}

var (
	errArtworkNotFound     = shared.NewDomainError("NOT_FOUND", "Artwork not found")
	errUserNotFound        = shared.NewDomainError("NOT_FOUND", "User not found")
	errTransactionNotFound = shared.NewDomainError("NOT_FOUND", "Transaction not found")
	errListingFeePaid      = shared.NewDomainError("ALREADY_PAID", "Listing fee already paid for this artwork")
)

// Service handles checkout sessions and the payment history
type Service struct {
	txScope         appshared.TransactionScope
	users           identity.UserRepository
	artworks        catalog.ArtworkRepository
	transactions    payment.TransactionRepository
	listingPayments payment.ListingPaymentRepository
	gateway         Gateway
	metrics         Metrics
	logger          *zap.Logger
	now             func() time.Time
}

// NewService creates a new payment Service. A nil metrics discards measurements.
func NewService(
	txScope appshared.TransactionScope,
	users identity.UserRepository,
	artworks catalog.ArtworkRepository,
	transactions payment.TransactionRepository,
	listingPayments payment.ListingPaymentRepository,
	gateway Gateway,
	metrics Metrics,
	logger *zap.Logger,
) *Service {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Service{
		txScope:         txScope,
		users:           users,
		artworks:        artworks,
		transactions:    transactions,
		listingPayments: listingPayments,
		gateway:         gateway,
		metrics:         metrics,
		logger:          logger,
		now:             time.Now,
	}
}

// EnsureCustomer returns the gateway customer of a user, creating it on
// first use. A new id is persisted on the user.
func (s *Service) EnsureCustomer(ctx context.Context, user *identity.User) (string, error) {
	customerID, err := s.gateway.EnsureCustomer(ctx, CustomerInfo{
		ExistingID: user.StripeCustomerID,
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Username,
	})
	if err != nil {
		s.logger.Error("Failed to ensure gateway customer", zap.String("user_id", user.ID.String()), zap.Error(err))
		return "", shared.WrapDomainError("PAYMENT_GATEWAY_ERROR", "Failed to set up payment customer", err)
	}
	if customerID != user.StripeCustomerID {
		user.AttachStripeCustomer(customerID)
		if err := s.users.Update(ctx, user); err != nil {
			return "", err
		}
	}
	return customerID, nil
}

// CreateListingSession opens the checkout for an artwork's listing fee
func (s *Service) CreateListingSession(ctx context.Context, artworkID, userID uuid.UUID) (*CheckoutResponse, error) {
	artwork, err := s.findArtwork(ctx, artworkID)
	if err != nil {
		return nil, err
	}
	if !artwork.IsOwnedBy(userID) {
		return nil, shared.NewDomainError("FORBIDDEN", "You can only pay the listing fee for your own artwork")
	}
	if err := checkListingFeeUnpaid(ctx, s.listingPayments, artwork); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	customerID, err := s.EnsureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	session, err := s.openSession(ctx, CheckoutRequest{
		CustomerID:  customerID,
		ProductName: "Listing fee: " + artwork.Title,
		Description: "One-time fee to publish your artwork on the marketplace",
		ImageURL:    artwork.PrimaryImage(),
		AmountCents: payment.ListingFeeAmount,
		Currency:    payment.Currency,
		Metadata: map[string]string{
			MetaType:      string(payment.TransactionTypeListingFee),
			MetaArtworkID: artworkID.String(),
			MetaUserID:    userID.String(),
		},
		ClientReferenceID: artworkID.String(),
	})
	if err != nil {
		return nil, err
	}

	lp, err := payment.NewListingPayment(userID, artworkID, session.ID)
	if err != nil {
		return nil, err
	}
	tx, err := payment.NewListingFeeTransaction(userID, artworkID, session.ID)
	if err != nil {
		return nil, err
	}
	tx.AttachPaymentIntent(session.PaymentIntentID)
	tx.Metadata = map[string]string{MetaType: string(payment.TransactionTypeListingFee)}

	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		locked, err := repos.Artworks().FindByIDForUpdate(ctx, artworkID)
		if err != nil {
			return err
		}
		// a webhook may have settled another checkout since the first check
		if err := checkListingFeeUnpaid(ctx, repos.ListingPayments(), locked); err != nil {
			return err
		}
		if err := locked.MarkListingFeePending(); err != nil {
			return err
		}
		if err := repos.Artworks().Update(ctx, locked); err != nil {
			return err
		}
		if err := repos.ListingPayments().Create(ctx, lp); err != nil {
			return err
		}
		return repos.Transactions().Create(ctx, tx)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errArtworkNotFound
		}
		return nil, err
	}

	s.metrics.CheckoutCreated(ctx, payment.TransactionTypeListingFee)
	s.logger.Info("Listing fee checkout created",
		zap.String("artwork_id", artworkID.String()),
		zap.String("session_id", session.ID))
	return checkoutResponse(session, tx), nil
}

// CreatePurchaseSession opens the checkout for buying an artwork
func (s *Service) CreatePurchaseSession(ctx context.Context, artworkID, buyerID uuid.UUID) (*CheckoutResponse, error) {
	artwork, err := s.findArtwork(ctx, artworkID)
	if err != nil {
		return nil, err
	}
	if err := artwork.CheckPurchasable(buyerID); err != nil {
		return nil, err
	}
	amount := artwork.PriceCents()
	if amount <= 0 {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Artwork has no valid price")
	}

	if err := s.checkNotReserved(ctx, s.transactions, artworkID, buyerID); err != nil {
		return nil, err
	}

	buyer, err := s.findUser(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	customerID, err := s.EnsureCustomer(ctx, buyer)
	if err != nil {
		return nil, err
	}

	platform, artist := payment.Commission(amount, payment.CommissionRate)
	metadata := map[string]string{
		MetaType:               string(payment.TransactionTypeSale),
		MetaArtworkID:          artworkID.String(),
		MetaBuyerID:            buyerID.String(),
		MetaSellerID:           artwork.ArtistID.String(),
		MetaPlatformCommission: strconv.FormatInt(platform, 10),
		MetaArtistAmount:       strconv.FormatInt(artist, 10),
	}
	session, err := s.openSession(ctx, CheckoutRequest{
		CustomerID:        customerID,
		ProductName:       artwork.Title,
		Description:       artwork.Description,
		ImageURL:          artwork.PrimaryImage(),
		AmountCents:       amount,
		Currency:          payment.Currency,
		Metadata:          metadata,
		ClientReferenceID: artworkID.String(),
	})
	if err != nil {
		return nil, err
	}

	tx, err := payment.NewSaleTransaction(buyerID, artwork.ArtistID, artworkID, session.ID, amount)
	if err != nil {
		return nil, err
	}
	tx.AttachPaymentIntent(session.PaymentIntentID)
	tx.Metadata = metadata

	// The checks are repeated under the artwork lock so that two buyers
	// cannot both hold a pending sale
	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		locked, err := repos.Artworks().FindByIDForUpdate(ctx, artworkID)
		if err != nil {
			return err
		}
		if err := locked.CheckPurchasable(buyerID); err != nil {
			return err
		}
		if err := s.checkNotReserved(ctx, repos.Transactions(), artworkID, buyerID); err != nil {
			return err
		}
		return repos.Transactions().Create(ctx, tx)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errArtworkNotFound
		}
		s.logger.Info("Purchase checkout abandoned",
			zap.String("artwork_id", artworkID.String()),
			zap.String("session_id", session.ID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.CheckoutCreated(ctx, payment.TransactionTypeSale)
	s.logger.Info("Purchase checkout created",
		zap.String("artwork_id", artworkID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.Int64("amount", amount),
		zap.String("session_id", session.ID))
	return checkoutResponse(session, tx), nil
}

// History returns the transactions where the user is buyer or seller, newest first
func (s *Service) History(ctx context.Context, userID uuid.UUID, q HistoryQuery) (*TransactionPage, error) {
	filter, err := q.Filter(shared.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	filter.UserID = &userID

	items, total, err := s.transactions.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToTransactionResponses(items), total, filter.Page, filter.Limit)
	return &page, nil
}

// GetTransaction returns a transaction to its buyer, its seller or an admin
func (s *Service) GetTransaction(ctx context.Context, viewer appshared.Viewer, id uuid.UUID) (*TransactionResponse, error) {
	tx, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errTransactionNotFound
		}
		return nil, err
	}
	if !tx.InvolvesUser(viewer.UserID) && !viewer.IsAdmin() {
		return nil, shared.NewDomainError("FORBIDDEN", "Not authorized to view this transaction")
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// Stats aggregates the completed transactions of a user
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*payment.UserStats, error) {
	return s.transactions.StatsForUser(ctx, userID)
}

func (s *Service) openSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	session, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.logger.Error("Failed to create checkout session",
			zap.String("type", req.Metadata[MetaType]),
			zap.String("artwork_id", req.Metadata[MetaArtworkID]),
			zap.Error(err))
		return nil, shared.WrapDomainError("PAYMENT_GATEWAY_ERROR", "Failed to create checkout session", err)
	}
	return session, nil
}

// checkNotReserved fails when another buyer holds a live pending sale
func (s *Service) checkNotReserved(ctx context.Context, transactions payment.TransactionRepository, artworkID, buyerID uuid.UUID) error {
	reserved, err := transactions.HasOpenSale(ctx, artworkID, buyerID, s.now().Add(-payment.SessionLifetime))
	if err != nil {
		return err
	}
	if reserved {
		return shared.NewDomainError("ARTWORK_RESERVED", "Another buyer is currently checking out this artwork")
	}
	return nil
}

func checkListingFeeUnpaid(ctx context.Context, listingPayments payment.ListingPaymentRepository, artwork *catalog.Artwork) error {
	if artwork.ListingFeeStatus == catalog.ListingFeePaid {
		return errListingFeePaid
	}
	paid, err := listingPayments.HasCompleted(ctx, artwork.ID)
	if err != nil {
		return err
	}
	if paid {
		return errListingFeePaid
	}
	return nil
}

func (s *Service) findArtwork(ctx context.Context, id uuid.UUID) (*catalog.Artwork, error) {
	artwork, err := s.artworks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errArtworkNotFound
		}
		return nil, err
	}
	return artwork, nil
}

func (s *Service) findUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func checkoutResponse(session *CheckoutSession, tx *payment.Transaction) *CheckoutResponse {
	return &CheckoutResponse{
		SessionID:       session.ID,
		SessionURL:      session.URL,
		PaymentIntentID: session.PaymentIntentID,
		TransactionID:   tx.ID,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
	}
}
