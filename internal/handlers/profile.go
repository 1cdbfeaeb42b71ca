package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/nutriscan/internal/profile"
	"github.com/example/nutriscan/internal/session"
	"github.com/example/nutriscan/internal/usecase"
)

const historyDisabledMessage = "Scan history is not enabled."

// profilePage loads the remote profile. A failed load leaves the form at its
// defaults without showing an error.
func (s *server) profilePage(c *gin.Context) {
	st := s.state(c, session.SelectTab(session.TabProfile), session.BeginProfileFetch())
	s.Cameras.Release(st.ID)

	loaded, ok := s.Profiles.Load(c.Request.Context())
	st = s.state(c, session.ProfileLoaded(loaded, ok))

	form := profile.Form{}
	if ok {
		form = profile.FormFromProfile(loaded)
	}
	s.render(c, http.StatusOK, "profile", page{
		Title:      "Profile",
		State:      st,
		Form:       form,
		Vocabulary: profileVocabulary,
	})
}

// saveProfile validates and saves the form. Success returns to the scan
// view; failure re-renders the entered values with the error.
func (s *server) saveProfile(c *gin.Context) {
	st := s.state(c, session.SelectTab(session.TabProfile), session.BeginProfileSave())
	s.Cameras.Release(st.ID)

	if err := c.Request.ParseForm(); err != nil {
		s.profileFailed(c, profile.Form{}, http.StatusBadRequest, "Invalid form submission")
		return
	}
	form := profile.ParseForm(c.Request.PostForm)

	p, err := form.Profile()
	if err != nil {
		s.profileFailed(c, form, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.Profiles.Save(c.Request.Context(), p)
	if err != nil {
		s.profileFailed(c, form, http.StatusBadGateway, err.Error())
		return
	}

	s.state(c, session.ProfileSaved(saved))
	c.Redirect(http.StatusSeeOther, "/scan")
}

func (s *server) profileFailed(c *gin.Context, form profile.Form, status int, message string) {
	st := s.state(c, session.ProfileSaveFailed(message))
	s.logger.Info("profile save failed", zap.String("session_id", st.ID), zap.String("error", message))
	s.render(c, status, "profile", page{
		Title:        "Profile",
		State:        st,
		Form:         form,
		ProfileError: message,
		Vocabulary:   profileVocabulary,
	})
}

func (s *server) historyPage(c *gin.Context) {
	st := s.state(c, session.SelectTab(session.TabHistory))
	s.Cameras.Release(st.ID)

	p := page{Title: "History", State: st}
	history, err := s.Scanner.GetHistory(c.Request.Context(), st.ID)
	switch {
	case errors.Is(err, usecase.ErrHistoryDisabled):
		p.HistoryError = historyDisabledMessage
	case err != nil:
		s.logger.Warn("failed to load history", zap.String("session_id", st.ID), zap.Error(err))
		p.HistoryError = "Failed to retrieve history"
	default:
		p.History = history
	}
	s.render(c, http.StatusOK, "history", p)
}
