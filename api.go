package main

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	deverrors "github.com/CodedInternet/gomotor/onboard/errors"
)

type GroupsPayload struct {
	Groups []string `json:"groups"`
}

type CurrentPayload struct {
	Value *float32 `json:"value"`
}

func (p *CurrentPayload) Bind(r *http.Request) error {
	if p.Value == nil {
		return errors.New("value is required")
	}
	if math.IsNaN(float64(*p.Value)) || math.IsInf(float64(*p.Value), 0) {
		return errors.New("value must be a finite number")
	}
	return nil
}

type CurrentResponse struct {
	Group string  `json:"group"`
	Index int     `json:"index"`
	Value float32 `json:"value"`
}

// renderDeviceError maps device errors onto responses.
func renderDeviceError(w http.ResponseWriter, r *http.Request, err error) {
	var gerr deverrors.GroupNameError
	if errors.As(err, &gerr) {
		render.Render(w, r, ErrNotFoundWith(err))
		return
	}
	render.Render(w, r, ErrRender(err))
}

func ListGroups(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, GroupsPayload{ENV.Device.GroupNames()})
}

func GetGroup(w http.ResponseWriter, r *http.Request) {
	state, err := ENV.Device.GroupState(chi.URLParam(r, "group"))
	if err != nil {
		renderDeviceError(w, r, err)
		return
	}
	render.JSON(w, r, state)
}

// SetCurrent commands one motor. Slots without a motor accept the command
// and ignore it, only a malformed index is refused.
func SetCurrent(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(errors.New("index must be an integer")))
		return
	}

	data := &CurrentPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := ENV.Device.SetCurrent(group, index, *data.Value); err != nil {
		renderDeviceError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, CurrentResponse{group, index, *data.Value})
}

func StopAll(w http.ResponseWriter, r *http.Request) {
	ENV.Device.Stop()
	ENV.Logger.Infow("all motors stopped", "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}
