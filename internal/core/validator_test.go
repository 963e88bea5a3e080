package core

import (
	"testing"

	"plotrisk/internal/types"
)

type evaluateRequest struct {
	Mode       string `json:"mode" validate:"omitempty,risk_mode"`
	DaysWindow int    `json:"days_window" validate:"omitempty,min=1,max=16"`
	PlotID     string `json:"plot_id" validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		name     string
		req      evaluateRequest
		wantCode types.ErrorCode
		field    string
	}{
		{name: "valid", req: evaluateRequest{Mode: "PROACTIVE", DaysWindow: 7, PlotID: "p1"}},
		{name: "defaults", req: evaluateRequest{PlotID: "p1"}},
		{name: "bad mode", req: evaluateRequest{Mode: "LIVE", PlotID: "p1"}, wantCode: types.ErrCodeValidationInvalidRequest, field: "mode"},
		{name: "window too large", req: evaluateRequest{DaysWindow: 30, PlotID: "p1"}, wantCode: types.ErrCodeValidationInvalidRequest, field: "days_window"},
		{name: "missing plot", req: evaluateRequest{}, wantCode: types.ErrCodeValidationMissingField, field: "plot_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.req)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			appErr, ok := err.(*types.AppError)
			if !ok {
				t.Fatalf("expected *AppError, got %T", err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("expected %s, got %s", tt.wantCode, appErr.Code)
			}
			if _, ok := appErr.Details[tt.field]; !ok {
				t.Errorf("expected details for %s, got %v", tt.field, appErr.Details)
			}
		})
	}
}
