package receipt

import (
	"bytes"
	"fmt"
	"net/mail"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/risiti/core"
)

type (
	Repository interface {
		CreateReceipt(rcpt Receipt) (Receipt, error)
		UpdateReceipt(rcpt Receipt) (Receipt, error)
		QueryAllReceipts() ([]Receipt, error)
		GetReceiptByID(id string) (Receipt, error)
		// FilterReceiptsByEmail does a case-insensitive match on Receipt.Email.
		FilterReceiptsByEmail(email string) ([]Receipt, error)
		DeleteReceiptsByID(ids ...string) error
	}

	// Renderer fills a document template with placeholder values.
	// Placeholders with no matching value are reported, not fatal.
	Renderer interface {
		Render(tpl []byte, data map[string]string) (doc []byte, unresolved []string, err error)
	}

	// IdentityService provisions student accounts for the emails found in
	// a fee sheet.
	IdentityService interface {
		EnsureAccount(email, initialSecret string) (accountID string, err error)
		UpsertProfile(accountID string, fields map[string]string) error
	}

	Service struct {
		repo     Repository
		store    core.FileStore
		render   Renderer
		identity IdentityService
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	store core.FileStore,
	render Renderer,
	identity IdentityService,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		render:   render,
		identity: identity,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

// Generate produces one document per record against tpl, sequentially and
// in sheet order. A record's failure is recorded on its receipt and never
// stops the batch. onProgress (optional) receives a fraction in [0, 1]
// that only ever grows; it is called once per finished record.
func (svc *Service) Generate(tpl []byte, recs []StudentRecord, onProgress func(float64)) (BatchReport, error) {
	report := BatchReport{Attempted: len(recs)}
	if len(recs) == 0 {
		return report, errors.New("nothing to generate")
	}

	unresolved := make(map[string]struct{})
	for i, rec := range recs {
		rcpt, names, err := svc.generateOne(tpl, rec, i+1)
		if err != nil {
			report.Failed++
			rcpt = svc.fail(rcpt, err)
		} else {
			report.Succeeded++
		}
		for _, name := range names {
			unresolved[name] = struct{}{}
		}
		report.Receipts = append(report.Receipts, rcpt)
		if onProgress != nil {
			onProgress(float64(i+1) / float64(len(recs)))
		}
	}

	for name := range unresolved {
		report.Unresolved = append(report.Unresolved, name)
	}
	return report, nil
}

func (svc *Service) generateOne(tpl []byte, rec StudentRecord, seq int) (Receipt, []string, error) {
	now := time.Now().UTC()
	rcpt := Receipt{
		ID:           uuid.New().String(),
		StudentName:  rec.Name,
		Email:        rec.Email,
		EnrollmentID: rec.EnrollmentID,
		PayOrderNo:   rec.PayOrderNo,
		Status:       StatusParsed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	rcpt, err := svc.repo.CreateReceipt(rcpt)
	if err != nil {
		return rcpt, nil, errors.Wrap(err, "recording receipt")
	}

	if rec.Email != "" {
		accountID, err := svc.identity.EnsureAccount(rec.Email, uuid.New().String())
		if err != nil {
			return rcpt, nil, errors.Wrapf(err, "provisioning account for %s", rec.Email)
		}
		rcpt.AccountID = accountID
		if err = svc.identity.UpsertProfile(accountID, map[string]string{
			"name":          rec.Name,
			"enrollment_id": rec.EnrollmentID,
		}); err != nil {
			return rcpt, nil, errors.Wrapf(err, "updating profile for %s", rec.Email)
		}
	}

	rcpt, err = svc.transition(rcpt, StatusGenerating)
	if err != nil {
		return rcpt, nil, err
	}
	doc, unresolved, err := svc.render.Render(tpl, BuildContext(rec, seq))
	if err != nil {
		return rcpt, unresolved, errors.Wrap(err, "rendering document")
	}

	rcpt, err = svc.transition(rcpt, StatusUploading)
	if err != nil {
		return rcpt, unresolved, err
	}
	handle, err := svc.store.Upload(docKey(rcpt), bytes.NewReader(doc))
	if err != nil {
		return rcpt, unresolved, errors.Wrap(err, "uploading document")
	}

	rcpt.Handle = handle
	rcpt, err = svc.transition(rcpt, StatusCompleted)
	return rcpt, unresolved, err
}

func (svc *Service) transition(rcpt Receipt, target Status) (Receipt, error) {
	if !rcpt.Status.next(target) {
		return rcpt, errors.Errorf("illegal transition %s -> %s", rcpt.Status, target)
	}
	rcpt.Status = target
	rcpt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateReceipt(rcpt)
}

func (svc *Service) fail(rcpt Receipt, cause error) Receipt {
	svc.logger.Error(fmt.Sprintf("receipt %s (%s): %v", rcpt.ID, rcpt.StudentName, cause), cause)
	rcpt.Status = StatusFailed
	rcpt.Error = cause.Error()
	rcpt.UpdatedAt = time.Now().UTC()
	updated, err := svc.repo.UpdateReceipt(rcpt)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("recording failure of receipt %s: %v", rcpt.ID, err), err)
		return rcpt
	}
	return updated
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// docKey names the stored document. The receipt ID is part of the key:
// two rows for the same student name must never share a handle.
func docKey(rcpt Receipt) string {
	name := whitespaceRegex.ReplaceAllString(rcpt.StudentName, "_")
	if rcpt.EnrollmentID != "" {
		return fmt.Sprintf("receipts/%s/Receipt_%s_%s.docx", rcpt.ID, name, rcpt.EnrollmentID)
	}
	return fmt.Sprintf("receipts/%s/Receipt_%s.docx", rcpt.ID, name)
}

func (svc *Service) QueryAll() ([]Receipt, error) {
	return svc.repo.QueryAllReceipts()
}

func (svc *Service) GetByID(id string) (Receipt, error) {
	return svc.repo.GetReceiptByID(id)
}

func (svc *Service) QueryByEmail(email string) ([]Receipt, error) {
	return svc.repo.FilterReceiptsByEmail(core.CleanString(email, true /* lower */))
}

// DownloadDocument returns the receipt and its stored document bytes.
func (svc *Service) DownloadDocument(id string) (Receipt, []byte, error) {
	rcpt, err := svc.repo.GetReceiptByID(id)
	if err != nil {
		return Receipt{}, nil, err
	}
	if rcpt.Handle == "" {
		return rcpt, nil, core.ErrFileNotFound
	}
	doc, err := svc.store.Download(rcpt.Handle)
	if err != nil {
		return rcpt, nil, errors.Wrapf(err, "downloading document of receipt %s", id)
	}
	return rcpt, doc, nil
}

// Delete removes the receipt row and its stored document. A document
// already gone from the store is not an error.
func (svc *Service) Delete(id string) error {
	rcpt, err := svc.repo.GetReceiptByID(id)
	if err != nil {
		return err
	}
	if rcpt.Handle != "" {
		if err = svc.store.Delete(rcpt.Handle); err != nil && errors.Cause(err) != core.ErrFileNotFound {
			return errors.Wrapf(err, "deleting document of receipt %s", id)
		}
	}
	return svc.repo.DeleteReceiptsByID(id)
}

// SendNotices emails every completed, not-yet-sent receipt with an email
// address to its student, document attached. Delivery is best effort: a
// receipt that cannot be mailed is logged and skipped, and the rest
// still go out. EmailService.SendMessages may deliver asynchronously, so
// Sent records the hand-off to the mailer, not confirmed delivery.
// Returns the number of notices handed off.
func (svc *Service) SendNotices() (int, error) {
	rcpts, err := svc.repo.QueryAllReceipts()
	if err != nil {
		return 0, err
	}

	var sent int
	for _, rcpt := range rcpts {
		if rcpt.Status != StatusCompleted || rcpt.Sent || rcpt.Email == "" {
			continue
		}
		doc, err := svc.store.Download(rcpt.Handle)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("fetching document of receipt %s: %v", rcpt.ID, err), err)
			continue
		}

		msg := &core.EmailMessage{
			To:           []mail.Address{{Name: rcpt.StudentName, Address: rcpt.Email}},
			Subject:      "Your fee receipt",
			TemplateName: "receipt-notice",
			TemplateData: rcpt,
		}
		fname := fmt.Sprintf("Receipt_%s.docx", whitespaceRegex.ReplaceAllString(rcpt.StudentName, "_"))
		if err = msg.Attach(bytes.NewReader(doc), fname, docxContentType); err != nil {
			svc.logger.Error(fmt.Sprintf("attaching document of receipt %s: %v", rcpt.ID, err), err)
			continue
		}
		svc.mailSvc.SendMessages(msg)

		rcpt.Sent = true
		rcpt.UpdatedAt = time.Now().UTC()
		if _, err = svc.repo.UpdateReceipt(rcpt); err != nil {
			svc.logger.Error(fmt.Sprintf("marking receipt %s sent: %v", rcpt.ID, err), err)
			continue
		}
		sent++
	}
	return sent, nil
}

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
