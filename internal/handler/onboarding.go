package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
	apierrors "github.com/HeadupandFace/cbt-companion-app/internal/pkg/errors"
	"github.com/HeadupandFace/cbt-companion-app/internal/pkg/response"
	"github.com/HeadupandFace/cbt-companion-app/internal/safety"
	"github.com/HeadupandFace/cbt-companion-app/internal/service"
	"github.com/HeadupandFace/cbt-companion-app/templates/pages"
)

// OnboardingPage renders the display name form, prefilled with the current name.
func (h *Handler) OnboardingPage(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	render(w, r, http.StatusOK, pages.Onboarding(user.DisplayName, ""))
}

// Onboarding handles the display name form.
func (h *Handler) Onboarding(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	form := service.DisplayNameRequest{DisplayName: r.PostFormValue("display_name")}
	if err := h.check(form, ""); err != nil {
		render(w, r, http.StatusBadRequest, pages.Onboarding(form.DisplayName, "Please enter a name between 1 and 50 characters."))
		return
	}

	if _, err := h.svc.Users.UpdateDisplayName(r.Context(), user.ID, form.DisplayName); err != nil {
		render(w, r, http.StatusBadRequest, pages.Onboarding(form.DisplayName, apierrors.AsAPIError(err).Message))
		return
	}
	http.Redirect(w, r, service.RedirectConsent, http.StatusFound)
}

// ConsentPage renders the consent step.
func (h *Handler) ConsentPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pages.Consent())
}

// SaveConsent handles POST /api/save_consent.
func (h *Handler) SaveConsent(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req service.ConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			h.fail(w, r, "save consent", apierrors.ErrBadRequest.WithMessage("Invalid data types for consent flags"))
			return
		}
		h.fail(w, r, "save consent", apierrors.ErrBadRequest.WithMessage("Invalid request format"))
		return
	}

	if err := h.svc.Users.SaveConsent(r.Context(), user.ID, req); err != nil {
		h.fail(w, r, "save consent", err)
		return
	}
	response.OK(w, response.Message{Message: "Consent updated successfully", NextURL: service.RedirectAssessment})
}

// AssessmentPage renders the foundation assessment.
func (h *Handler) AssessmentPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pages.Assessment(models.Assessment{}, ""))
}

// Assessment handles the foundation assessment form. A "yes" to the self-harm
// question stores nothing yet and sends the user to crisis support.
func (h *Handler) Assessment(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	answers := service.AssessmentAnswers{
		PrimaryIssues:    r.PostFormValue("primary_issues"),
		DailyImpact:      r.PostFormValue("daily_impact"),
		TherapyGoals:     r.PostFormValue("therapy_goals"),
		CopingStrategies: r.PostFormValue("coping_strategies"),
		SelfHarmThoughts: r.PostFormValue("self_harm_thoughts"),
	}
	if err := h.check(answers, ""); err != nil {
		render(w, r, http.StatusBadRequest, pages.Assessment(assessmentForm(answers), apierrors.AsAPIError(err).Message))
		return
	}

	out, err := h.svc.Users.SubmitAssessment(r.Context(), user.ID, answers)
	if err != nil {
		render(w, r, http.StatusInternalServerError, pages.Assessment(assessmentForm(answers), apierrors.AsAPIError(err).Message))
		return
	}

	if out.NeedsCrisisSupport {
		if err := h.sessions.StashAssessment(w, r, answers); err != nil {
			h.logger.Error("failed to stash assessment",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	http.Redirect(w, r, out.Redirect, http.StatusFound)
}

// CrisisSupportPage renders the helplines.
func (h *Handler) CrisisSupportPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pages.CrisisSupport(safety.DefaultSupportContacts().List()))
}

// CrisisSupport stores the held-back assessment once the user acknowledges
// the helplines. Without a held-back assessment the page is shown again.
func (h *Handler) CrisisSupport(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	answers, err := h.sessions.PopAssessment(w, r)
	if err != nil {
		h.logger.Warn("failed to read stashed assessment",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	if answers == nil {
		h.CrisisSupportPage(w, r)
		return
	}

	if _, err := h.svc.Users.AcknowledgeSafetyAlert(r.Context(), user.ID, *answers); err != nil {
		h.fail(w, r, "acknowledge safety alert", err)
		return
	}
	http.Redirect(w, r, service.RedirectChat, http.StatusFound)
}

// assessmentForm carries submitted answers back into the form after a failure.
func assessmentForm(a service.AssessmentAnswers) models.Assessment {
	return models.Assessment{
		PrimaryIssues:    a.PrimaryIssues,
		DailyImpact:      a.DailyImpact,
		TherapyGoals:     a.TherapyGoals,
		CopingStrategies: a.CopingStrategies,
	}
}
