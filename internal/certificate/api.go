package certificate

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCipher seals and opens certificate access passwords. The concrete
// scheme lives outside this package.
type PasswordCipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(sealed []byte) ([]byte, error)
}

// APIServer handles HTTP requests.
type APIServer struct {
	service  *Service
	scanner  *Scanner
	cipher   PasswordCipher
	onChange func()
}

// NewAPIServer creates a new API server. onChange, if set, runs after every
// mutation (used to refresh metrics).
func NewAPIServer(service *Service, scanner *Scanner, cipher PasswordCipher, onChange func()) *APIServer {
	return &APIServer{service: service, scanner: scanner, cipher: cipher, onChange: onChange}
}

// Credential keys for the guarded endpoints.
const (
	CredentialScanKey    = "scan_api_key"
	CredentialControlKey = "control_api_key"
)

// RegisterRoutes mounts the certificate routes on the router.
func (s *APIServer) RegisterRoutes(r chi.Router) {
	r.Get("/", s.viewCerts)
	r.Get("/config", s.viewConfig)

	r.Route("/certificates", func(r chi.Router) {
		r.Get("/", s.listCertificates)
		r.Post("/", s.createCertificate)
		r.Put("/{id}", s.updateCertificate)
		r.Patch("/{id}/complete", s.completeCertificate)
		r.Delete("/{id}", s.deleteCertificate)
		r.Get("/{id}/password", s.revealPassword)
	})

	r.Post("/scan", s.triggerScan)
	r.Post("/scheduler/pause", s.pauseScheduler)
	r.Post("/scheduler/resume", s.resumeScheduler)
}

const tpl = `
<!DOCTYPE html>
<html>
<head>
    <title>Validy - Certificates</title>
    <style>
        body { font-family: sans-serif; margin: 20px; }
        table { border-collapse: collapse; width: 100%; margin-top: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; vertical-align: top; }
        th { background-color: #f2f2f2; }
        .pending { background-color: #fff3cd; }
        .completed { background-color: #d4edda; }
        .expired { background-color: #f8d7da; }
        .config { margin-bottom: 20px; padding: 10px; background-color: #e9ecef; border-radius: 5px; }

        .scheduler-status {
            margin-bottom: 20px;
            padding: 10px;
            border-radius: 5px;
            border: 1px solid;
        }
        .scheduler-active {
            background-color: #d4edda;
            border-color: #c3e6cb;
            color: #155724;
        }
        .scheduler-stopped {
            background-color: #f8d7da;
            border-color: #f5c6cb;
            color: #721c24;
        }
    </style>
</head>
<body>
    <h1>Validy Certificate Tracker</h1>
    <div class="config">
        <strong>Current Configuration:</strong><br>
        Scan Schedule: {{.Config.Schedule}}<br>
        Days Threshold: {{.Config.DaysThreshold}}<br>
        Current Time: {{.Config.CurrentTime}}
    </div>

    <div class="scheduler-status {{if .SchedulerActive}}scheduler-active{{else}}scheduler-stopped{{end}}">
        <strong>Scheduler Status:</strong> {{if .SchedulerActive}}Active (Scanning for Expirations){{else}}PAUSED (Notifications Suspended){{end}}
    </div>

    <h2>Certificates</h2>
    <table>
        <tr>
            <th>ID</th>
            <th>Name</th>
            <th>Tax ID</th>
            <th>Type</th>
            <th>Expires At</th>
            <th>Workflow Status</th>
            <th>Derived Status</th>
            <th>Last Notified</th>
            <th>Recipients</th>
        </tr>
        {{range .Certificates}}
        <tr class="{{.RowClass}}">
            <td>{{.ID}}</td>
            <td>{{.Name}}</td>
            <td>{{.TaxID}}</td>
            <td>{{.Type}}</td>
            <td>{{.ExpiresAt.Format "2006-01-02"}}</td>
            <td>{{.Status}}</td>
            <td>{{.DerivedStatus}}</td>
            <td>{{if .LastNotifiedAt.Valid}}{{.LastNotifiedAt.Time.Format "2006-01-02 15:04:05"}}{{else}}never{{end}}</td>
            <td>{{range .NotificationEmails}}{{.}}<br>{{end}}</td>
        </tr>
        {{end}}
    </table>
</body>
</html>
`

// CertificateView extends Certificate with the status computed at read time.
type CertificateView struct {
	Certificate
	DerivedStatus DerivedStatus `json:"derivedStatus"`
	HasPassword   bool          `json:"hasPassword"`
}

// RowClass picks the display class: the derived status wins when expired.
func (v CertificateView) RowClass() string {
	if v.DerivedStatus == DerivedExpired {
		return "expired"
	}
	if v.Status == StatusCompleted {
		return "completed"
	}
	return "pending"
}

func (s *APIServer) certificateViews() ([]CertificateView, error) {
	certs, err := s.service.GetCertificates()
	if err != nil {
		return nil, err
	}

	views := make([]CertificateView, 0, len(certs))
	for _, cert := range certs {
		views = append(views, CertificateView{
			Certificate:   cert,
			DerivedStatus: ComputeStatus(cert.ExpiresAt),
			HasPassword:   len(cert.PasswordCipher) > 0,
		})
	}
	return views, nil
}

func (s *APIServer) viewCerts(w http.ResponseWriter, r *http.Request) {
	views, err := s.certificateViews()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to get certificates: %v", err), http.StatusInternalServerError)
		return
	}

	schedulerActive, err := s.service.SchedulerActive()
	if err != nil {
		slog.Error("failed to get scheduler status", "err", err)
		schedulerActive = true
	}

	schedule, err := s.service.ScanSchedule()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to get scan schedule: %v", err), http.StatusInternalServerError)
		return
	}
	daysThreshold, err := s.service.DaysThreshold()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to get days threshold: %v", err), http.StatusInternalServerError)
		return
	}

	data := struct {
		Config struct {
			Schedule      string
			DaysThreshold int
			CurrentTime   string
		}
		SchedulerActive bool
		Certificates    []CertificateView
	}{
		SchedulerActive: schedulerActive,
		Certificates:    views,
	}
	data.Config.Schedule = schedule
	data.Config.DaysThreshold = daysThreshold
	data.Config.CurrentTime = time.Now().Format("2006-01-02 15:04:05")

	t, err := template.New("webpage").Parse(tpl)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to parse template: %v", err), http.StatusInternalServerError)
		return
	}

	if err := t.Execute(w, data); err != nil {
		http.Error(w, fmt.Sprintf("failed to execute template: %v", err), http.StatusInternalServerError)
	}
}

func (s *APIServer) viewConfig(w http.ResponseWriter, r *http.Request) {
	schedule, err := s.service.ScanSchedule()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to get config: %v", err), http.StatusInternalServerError)
		return
	}
	daysThreshold, err := s.service.DaysThreshold()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to get config: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scan_schedule":  schedule,
		"days_threshold": daysThreshold,
	})
}

// certificateRequest is the JSON payload for create and update. Pointer
// fields distinguish "absent" from "zero" on partial updates.
type certificateRequest struct {
	Name               *string  `json:"name"`
	TaxID              *string  `json:"taxId"`
	Type               *string  `json:"type"`
	ExpiresAt          *string  `json:"expiresAt"`
	Password           *string  `json:"password"`
	NotificationEmails []string `json:"notificationEmails"`
	Status             *string  `json:"status"`
}

func (req *certificateRequest) apply(cert *Certificate, cipher PasswordCipher) error {
	if req.Name != nil {
		cert.Name = *req.Name
	}
	if req.TaxID != nil {
		cert.TaxID = *req.TaxID
	}
	if req.Type != nil {
		cert.Type = CertificateType(*req.Type)
	}
	if req.ExpiresAt != nil {
		expiresAt, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return fmt.Errorf("invalid expiresAt, want RFC3339: %w", err)
		}
		cert.ExpiresAt = expiresAt
	}
	if req.NotificationEmails != nil {
		cert.NotificationEmails = req.NotificationEmails
	}
	if req.Status != nil {
		cert.Status = WorkflowStatus(*req.Status)
	}
	if req.Password != nil && *req.Password != "" {
		sealed, err := cipher.Encrypt([]byte(*req.Password))
		if err != nil {
			return fmt.Errorf("failed to encrypt password: %w", err)
		}
		cert.PasswordCipher = sealed
	}
	return nil
}

func (s *APIServer) createCertificate(w http.ResponseWriter, r *http.Request) {
	var req certificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	var cert Certificate
	if err := req.apply(&cert, s.cipher); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.service.CreateCertificate(cert)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.changed()
	slog.Info("certificate created", "certificate", created.ID, "name", created.Name)
	writeJSON(w, http.StatusCreated, CertificateView{
		Certificate:   created,
		DerivedStatus: ComputeStatus(created.ExpiresAt),
		HasPassword:   len(created.PasswordCipher) > 0,
	})
}

func (s *APIServer) listCertificates(w http.ResponseWriter, r *http.Request) {
	views, err := s.certificateViews()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *APIServer) updateCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cert, err := s.service.GetCertificate(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req certificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := req.apply(&cert, s.cipher); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.service.UpdateCertificate(cert)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeStoreError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.changed()
	writeJSON(w, http.StatusOK, CertificateView{
		Certificate:   updated,
		DerivedStatus: ComputeStatus(updated.ExpiresAt),
		HasPassword:   len(updated.PasswordCipher) > 0,
	})
}

func (s *APIServer) completeCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cert, err := s.service.CompleteCertificate(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.changed()
	slog.Info("certificate marked completed", "certificate", cert.ID)
	writeJSON(w, http.StatusOK, CertificateView{
		Certificate:   cert,
		DerivedStatus: ComputeStatus(cert.ExpiresAt),
		HasPassword:   len(cert.PasswordCipher) > 0,
	})
}

func (s *APIServer) deleteCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.DeleteCertificate(id); err != nil {
		writeStoreError(w, err)
		return
	}

	s.changed()
	slog.Info("certificate deleted", "certificate", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "certificate deleted"})
}

// revealPassword decrypts the stored access password on demand. Guarded by
// the control key since it exposes a secret.
func (s *APIServer) revealPassword(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, CredentialControlKey) {
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cert, err := s.service.GetCertificate(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if len(cert.PasswordCipher) == 0 {
		writeError(w, http.StatusNotFound, "certificate has no stored password")
		return
	}

	plaintext, err := s.cipher.Decrypt(cert.PasswordCipher)
	if err != nil {
		slog.Error("failed to decrypt certificate password", "certificate", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to decrypt password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"password": string(plaintext)})
}

// triggerScan runs a scan immediately and returns the full summary, partial
// failures included.
func (s *APIServer) triggerScan(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, CredentialScanKey) {
		return
	}

	daysThreshold, err := s.service.DaysThreshold()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if r.Body != nil {
		var req struct {
			DaysThreshold *int `json:"daysThreshold"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.DaysThreshold != nil {
			daysThreshold = *req.DaysThreshold
		}
	}

	if daysThreshold < 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("days threshold must be >= 0, got %d", daysThreshold))
		return
	}

	summary, err := s.scanner.Scan(r.Context(), daysThreshold)
	if err != nil {
		if errors.Is(err, ErrScanInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.changed()
	writeJSON(w, http.StatusOK, summary)
}

func (s *APIServer) pauseScheduler(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, CredentialControlKey) {
		return
	}

	if err := s.service.PauseScheduler(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.Info("scheduler paused via control endpoint")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "paused",
		"message": "Scheduled scans suspended",
	})
}

func (s *APIServer) resumeScheduler(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, CredentialControlKey) {
		return
	}

	if err := s.service.ResumeScheduler(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.Info("scheduler resumed via control endpoint")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "active",
		"message": "Scheduled scans resumed",
	})
}

// authorize checks the key query parameter against the bcrypt hash stored
// under the given credential name.
func (s *APIServer) authorize(w http.ResponseWriter, r *http.Request, credentialKey string) bool {
	apiKey := r.URL.Query().Get("key")
	if apiKey == "" {
		writeError(w, http.StatusUnauthorized, "missing API key")
		return false
	}

	storedHash, err := s.service.store.GetCredential(credentialKey)
	if err != nil {
		slog.Error("failed to retrieve API key", "credential", credentialKey, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return false
	}

	if storedHash == "" || bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(apiKey)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid API key")
		return false
	}

	return true
}

func (s *APIServer) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid certificate id")
	}
	return id, nil
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "certificate not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
