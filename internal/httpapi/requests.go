package httpapi

import (
	"fmt"
	"time"

	"offender-movements/internal/models"
	"offender-movements/internal/service"
	"offender-movements/pkg/sentinel"
)

type addressRef struct {
	AddressID  *int64            `json:"address_id"`
	OwnerClass models.OwnerClass `json:"owner_class"`
}

func (a *addressRef) toModel() models.AddressOwnerReference {
	if a == nil {
		return models.AddressOwnerReference{}
	}
	return models.AddressOwnerReference{AddressID: a.AddressID, OwnerClass: a.OwnerClass}
}

type createApplicationRequest struct {
	BookingID               int64       `json:"booking_id"`
	EventSubType            string      `json:"event_sub_type"`
	ApplicationTime         *time.Time  `json:"application_time"`
	ReleaseTime             time.Time   `json:"release_time"`
	ReturnTime              time.Time   `json:"return_time"`
	ApplicationType         string      `json:"application_type"`
	ApplicationStatus       string      `json:"application_status"`
	EscortCode              string      `json:"escort"`
	TransportType           string      `json:"transport_type"`
	Comment                 string      `json:"comment"`
	ToAgencyID              *string     `json:"to_agency_id"`
	ToAddress               *addressRef `json:"to_address"`
	ContactPersonName       string      `json:"contact_person_name"`
	TemporaryAbsenceType    string      `json:"temporary_absence_type"`
	TemporaryAbsenceSubType string      `json:"temporary_absence_sub_type"`
}

func (r createApplicationRequest) toParams() (service.CreateApplicationParams, error) {
	if r.BookingID == 0 {
		return service.CreateApplicationParams{}, fmt.Errorf("%w: booking_id is required", sentinel.ErrInvalidInput)
	}
	p := service.CreateApplicationParams{
		BookingID:               r.BookingID,
		EventSubType:            r.EventSubType,
		ReleaseTime:             r.ReleaseTime,
		ReturnTime:              r.ReturnTime,
		ApplicationType:         r.ApplicationType,
		ApplicationStatus:       r.ApplicationStatus,
		EscortCode:              r.EscortCode,
		TransportType:           r.TransportType,
		Comment:                 r.Comment,
		ToAgencyID:              r.ToAgencyID,
		ToAddress:               r.ToAddress.toModel(),
		ContactPersonName:       r.ContactPersonName,
		TemporaryAbsenceType:    r.TemporaryAbsenceType,
		TemporaryAbsenceSubType: r.TemporaryAbsenceSubType,
	}
	if r.ApplicationTime != nil {
		p.ApplicationTime = *r.ApplicationTime
	}
	return p, nil
}

type outsideMovementRequest struct {
	EventSubType            string      `json:"event_sub_type"`
	FromDate                time.Time   `json:"from_date"`
	ToDate                  time.Time   `json:"to_date"`
	ToAgencyID              *string     `json:"to_agency_id"`
	ToAddress               *addressRef `json:"to_address"`
	ContactPersonName       string      `json:"contact_person_name"`
	TemporaryAbsenceType    string      `json:"temporary_absence_type"`
	TemporaryAbsenceSubType string      `json:"temporary_absence_sub_type"`
	Comment                 string      `json:"comment"`
}

func (r outsideMovementRequest) toParams() service.OutsideMovementParams {
	return service.OutsideMovementParams{
		EventSubType:            r.EventSubType,
		FromDate:                r.FromDate,
		ToDate:                  r.ToDate,
		ToAgencyID:              r.ToAgencyID,
		ToAddress:               r.ToAddress.toModel(),
		ContactPersonName:       r.ContactPersonName,
		TemporaryAbsenceType:    r.TemporaryAbsenceType,
		TemporaryAbsenceSubType: r.TemporaryAbsenceSubType,
		Comment:                 r.Comment,
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type scheduleReturnRequest struct {
	StartTime     time.Time   `json:"start_time"`
	EventSubType  string      `json:"event_sub_type"`
	EscortCode    string      `json:"escort"`
	TransportType string      `json:"transport_type"`
	FromAgencyID  *string     `json:"from_agency_id"`
	ToAgencyID    string      `json:"to_agency_id"`
	ToAddress     *addressRef `json:"to_address"`
	Comment       string      `json:"comment"`
}

func (r scheduleReturnRequest) toParams() service.ScheduleReturnParams {
	return service.ScheduleReturnParams{
		StartTime:     r.StartTime,
		EventSubType:  r.EventSubType,
		EscortCode:    r.EscortCode,
		TransportType: r.TransportType,
		FromAgencyID:  r.FromAgencyID,
		ToAgencyID:    r.ToAgencyID,
		ToAddress:     r.ToAddress.toModel(),
		Comment:       r.Comment,
	}
}

type scheduleAbsenceRequest struct {
	StartTime     time.Time              `json:"start_time"`
	EventSubType  string                 `json:"event_sub_type"`
	EscortCode    string                 `json:"escort"`
	TransportType string                 `json:"transport_type"`
	FromAgencyID  string                 `json:"from_agency_id"`
	ToAgencyID    *string                `json:"to_agency_id"`
	ReturnTime    *time.Time             `json:"return_time"`
	ToAddress     *addressRef            `json:"to_address"`
	Comment       string                 `json:"comment"`
	Return        *scheduleReturnRequest `json:"return"`
}

func (r scheduleAbsenceRequest) toParams() service.ScheduleAbsenceParams {
	p := service.ScheduleAbsenceParams{
		StartTime:     r.StartTime,
		EventSubType:  r.EventSubType,
		EscortCode:    r.EscortCode,
		TransportType: r.TransportType,
		FromAgencyID:  r.FromAgencyID,
		ToAgencyID:    r.ToAgencyID,
		ReturnTime:    r.ReturnTime,
		ToAddress:     r.ToAddress.toModel(),
		Comment:       r.Comment,
	}
	if r.Return != nil {
		ret := r.Return.toParams()
		p.Return = &ret
	}
	return p
}

type recordMovementRequest struct {
	MovementTime       time.Time        `json:"movement_time"`
	MovementType       string           `json:"movement_type"`
	MovementReasonCode string           `json:"movement_reason_code"`
	Direction          models.Direction `json:"direction"`
	EscortCode         string           `json:"escort"`
	EscortText         string           `json:"escort_text"`
	ArrestAgencyID     *string          `json:"arrest_agency"`
	FromAgencyID       *string          `json:"from_agency_id"`
	ToAgencyID         *string          `json:"to_agency_id"`
	FromAddress        *addressRef      `json:"from_address"`
	ToAddress          *addressRef      `json:"to_address"`
	FromCity           string           `json:"from_city"`
	ToCity             string           `json:"to_city"`
	Comment            string           `json:"comment"`
	EventID            *int64           `json:"event_id"`
	ParentEventID      *int64           `json:"parent_event_id"`
}

func (r recordMovementRequest) toParams(bookingID int64) service.RecordMovementParams {
	return service.RecordMovementParams{
		BookingID:          bookingID,
		MovementTime:       r.MovementTime,
		MovementType:       r.MovementType,
		MovementReasonCode: r.MovementReasonCode,
		Direction:          r.Direction,
		EscortCode:         r.EscortCode,
		EscortText:         r.EscortText,
		ArrestAgencyID:     r.ArrestAgencyID,
		FromAgencyID:       r.FromAgencyID,
		ToAgencyID:         r.ToAgencyID,
		FromAddress:        r.FromAddress.toModel(),
		ToAddress:          r.ToAddress.toModel(),
		FromCity:           r.FromCity,
		ToCity:             r.ToCity,
		Comment:            r.Comment,
		EventID:            r.EventID,
		ParentEventID:      r.ParentEventID,
	}
}

// classifiedMovementResponse is the body returned after recording a movement.
type classifiedMovementResponse struct {
	*models.ExternalMovement
	Kind      models.MovementKind `json:"kind"`
	Scheduled bool                `json:"scheduled"`
}

// scheduledAbsenceResponse carries the pair explicitly; the model hides its
// navigation fields from JSON.
type scheduledAbsenceResponse struct {
	*models.ScheduledTemporaryAbsence
	ScheduledReturn *models.ScheduledTemporaryAbsenceReturn `json:"scheduled_temporary_absence_return"`
}

func newScheduledAbsenceResponse(a *models.ScheduledTemporaryAbsence) scheduledAbsenceResponse {
	return scheduledAbsenceResponse{ScheduledTemporaryAbsence: a, ScheduledReturn: a.ScheduledReturn}
}
