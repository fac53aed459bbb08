package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"bookstore/internal/domain"
	"bookstore/internal/repository"
)

// URLSigner produces delivery URLs for stored files.
type URLSigner interface {
	SignedURL(publicID string) (string, error)
	CoverURL(publicID string) (string, error)
}

type DownloadLink struct {
	OrderID  string `json:"orderId"`
	BookID   string `json:"bookId"`
	URL      string `json:"url"`
	CoverURL string `json:"coverUrl,omitempty"`
}

// DownloadService hands out the purchased PDF once its payment is completed.
type DownloadService struct {
	payments *repository.PaymentRepository
	books    *repository.BookRepository
	signer   URLSigner
}

func NewDownloadService(payments *repository.PaymentRepository, books *repository.BookRepository, signer URLSigner) *DownloadService {
	return &DownloadService{payments: payments, books: books, signer: signer}
}

// Link returns the download URL for orderID. userID, when set, must own the payment.
func (s *DownloadService) Link(ctx context.Context, orderID, userID string) (*DownloadLink, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.Validation("orderId is required")
	}
	p, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("Payment record not found")
		}
		return nil, domain.Internal("Failed to load payment record", err)
	}
	if userID != "" && p.UserID != userID {
		return nil, domain.NotFound("Payment record not found")
	}
	if p.Status != domain.PaymentStatusCompleted {
		return nil, domain.InvalidState("Payment is not completed")
	}
	book, err := s.books.GetByID(ctx, p.BookID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("Book not found")
		}
		return nil, domain.Internal("Failed to load book", err)
	}
	if book.PDFPublicID == "" {
		return nil, domain.InvalidState("This book has no downloadable file")
	}
	if s.signer == nil {
		return nil, domain.NewError(domain.KindConfiguration, "File storage is not configured", nil)
	}
	url, err := s.signer.SignedURL(book.PDFPublicID)
	if err != nil {
		return nil, domain.Internal("Failed to create download link", err)
	}
	link := &DownloadLink{OrderID: p.OrderID, BookID: book.ID, URL: url}
	if book.CoverPublicID != "" {
		if link.CoverURL, err = s.signer.CoverURL(book.CoverPublicID); err != nil {
			log.Printf("[DOWNLOAD] cover url failed book_id=%s: %v", book.ID, err)
		}
	}
	return link, nil
}
