package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/nutriscan/internal/acquisition"
	"github.com/example/nutriscan/internal/auth"
	"github.com/example/nutriscan/internal/camera"
	"github.com/example/nutriscan/internal/models"
	"github.com/example/nutriscan/internal/session"
	"github.com/example/nutriscan/internal/verdict"
)

const captureFailedMessage = "Could not capture image. Please try again."

// scanPage shows the scan view. ?mode= switches the input mode; showing the
// camera view acquires the stream and leaving it releases it.
func (s *server) scanPage(c *gin.Context) {
	transitions := []session.Transition{session.SelectTab(session.TabScan)}
	if mode := c.Query("mode"); mode != "" {
		transitions = append(transitions, session.SelectInputMode(session.ParseInputMode(mode)))
	}
	st := s.state(c, transitions...)

	p := s.scanView(c, st)
	if st.LastResult != nil {
		v := verdict.Present(st.LastResult)
		p.Verdict = &v
	}
	s.render(c, http.StatusOK, "scan", p)
}

// scanView syncs the camera with the input mode and builds the base page.
func (s *server) scanView(c *gin.Context, st session.State) page {
	id := st.ID
	p := page{
		Title:         "Scan",
		State:         st,
		Mode:          st.InputMode,
		CameraEnabled: s.Cameras.Enabled(),
	}

	if st.InputMode != session.InputCamera {
		s.Cameras.Release(id)
		return p
	}

	ctrl, ok := s.Cameras.Peek(id)
	if !ok || ctrl.Status().State == camera.StateIdle {
		ctrl = s.Cameras.Controller(id)
		if err := ctrl.Start(c.Request.Context()); err != nil {
			s.logger.Info("camera start failed", zap.String("session_id", id), zap.Error(err))
		}
	} else {
		// Touch the registry entry so the sweeper sees activity.
		s.Cameras.Controller(id)
	}
	p.Camera = ctrl.Status()
	return p
}

func (s *server) upload(c *gin.Context) {
	st := s.state(c, session.SelectTab(session.TabScan), session.SelectInputMode(session.InputUpload))
	s.Cameras.Release(st.ID)

	p := page{Title: "Scan", State: st, Mode: session.InputUpload, CameraEnabled: s.Cameras.Enabled()}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.Uploader.MaxBytes+multipartOverhead)
	upload, status, err := s.readUpload(c)
	if err != nil {
		p.InputError = err.Error()
		s.render(c, status, "scan", p)
		return
	}
	p.ProductName = strings.TrimSpace(c.PostForm("product_name"))

	var captured *acquisition.Image
	preview, err := s.Uploader.Accept(upload, func(img acquisition.Image) { captured = &img })
	if err != nil {
		p.InputError = err.Error()
		s.render(c, validationStatus(err), "scan", p)
		return
	}

	s.submitAndRender(c, p, *captured, template.URL(preview))
}

func (s *server) cameraStart(c *gin.Context) {
	st := s.state(c, session.SelectTab(session.TabScan), session.SelectInputMode(session.InputCamera))
	if err := s.Cameras.Controller(st.ID).Start(c.Request.Context()); err != nil {
		s.logger.Info("camera start failed", zap.String("session_id", st.ID), zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/scan")
}

func (s *server) cameraSwitch(c *gin.Context) {
	st := s.state(c, session.SelectTab(session.TabScan), session.SelectInputMode(session.InputCamera))
	if err := s.Cameras.Controller(st.ID).SwitchCamera(c.Request.Context()); err != nil {
		s.logger.Info("camera switch failed", zap.String("session_id", st.ID), zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/scan")
}

func (s *server) cameraCapture(c *gin.Context) {
	st := s.state(c, session.SelectTab(session.TabScan), session.SelectInputMode(session.InputCamera))
	ctrl := s.Cameras.Controller(st.ID)

	p := page{Title: "Scan", State: st, Mode: session.InputCamera, CameraEnabled: s.Cameras.Enabled()}
	p.ProductName = strings.TrimSpace(c.PostForm("product_name"))

	var captured *acquisition.Image
	err := ctrl.Capture(c.Request.Context(), func(img acquisition.Image) { captured = &img })
	p.Camera = ctrl.Status()
	if err != nil {
		s.logger.Warn("camera capture failed", zap.String("session_id", st.ID), zap.Error(err))
		p.InputError = captureFailedMessage
		if errors.Is(err, camera.ErrNotStreaming) {
			p.InputError = camera.AccessErrorMessage
		}
		s.render(c, http.StatusConflict, "scan", p)
		return
	}

	s.submitAndRender(c, p, *captured, template.URL(captured.DataURL()))
}

func (s *server) submitAndRender(c *gin.Context, p page, img acquisition.Image, preview template.URL) {
	result := s.Scanner.Scan(c.Request.Context(), auth.SessionFromGin(c), img, p.ProductName)
	v := verdict.Present(&result)
	p.Preview = preview
	p.Verdict = &v
	p.State.LastResult = &result
	s.render(c, http.StatusOK, "scan", p)
}

// readUpload extracts the "file" part. A missing part is not an error here;
// the uploader reports it with the user-facing message.
func (s *server) readUpload(c *gin.Context) (*acquisition.Upload, int, error) {
	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return nil, http.StatusRequestEntityTooLarge, acquisition.ErrTooLarge
		}
		return nil, http.StatusOK, nil
	}
	upload, err := s.Uploader.FromMultipart(header)
	if err != nil {
		if errors.Is(err, acquisition.ErrTooLarge) {
			return nil, http.StatusRequestEntityTooLarge, err
		}
		return nil, http.StatusBadRequest, err
	}
	return upload, http.StatusOK, nil
}

func validationStatus(err error) int {
	switch {
	case errors.Is(err, acquisition.ErrNotImage), errors.Is(err, acquisition.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, acquisition.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// apiScan is the JSON relay of POST /api/scan. Failures keep the
// {success:false, error} shape.
func (s *server) apiScan(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.Uploader.MaxBytes+multipartOverhead)
	upload, status, err := s.readUpload(c)
	if err != nil {
		c.JSON(status, models.FailedResult(err.Error()))
		return
	}

	var captured *acquisition.Image
	if _, err := s.Uploader.Accept(upload, func(img acquisition.Image) { captured = &img }); err != nil {
		c.JSON(validationStatus(err), models.FailedResult(err.Error()))
		return
	}

	result := s.Scanner.Scan(c.Request.Context(), auth.SessionFromGin(c), *captured, strings.TrimSpace(c.PostForm("product_name")))
	writeResult(c, result)
}

func writeResult(c *gin.Context, result models.AnalysisResult) {
	if len(result.Raw) > 0 {
		c.Data(http.StatusOK, "application/json; charset=utf-8", result.Raw)
		return
	}
	c.JSON(http.StatusOK, result)
}
