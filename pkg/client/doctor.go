package client

import (
	"context"
	"net/url"

	"medassist/pkg/model"
)

type DoctorClient struct {
	httpClient *HttpClient
}

func NewDoctorClient(httpClient *HttpClient) *DoctorClient {
	return &DoctorClient{httpClient: httpClient}
}

func (c *DoctorClient) GetAll(ctx context.Context) ([]model.Doctor, error) {
	var doctors []model.Doctor
	if err := c.httpClient.getJSON(ctx, "/doctors/", &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (c *DoctorClient) GetBySpecialty(ctx context.Context, specialty string) ([]model.Doctor, error) {
	var doctors []model.Doctor
	path := "/doctors/specialty/" + url.PathEscape(specialty)
	if err := c.httpClient.getJSON(ctx, path, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (c *DoctorClient) Create(ctx context.Context, doctor model.DoctorCreate) (*model.Doctor, error) {
	var created model.Doctor
	if err := c.httpClient.postJSON(ctx, "/doctors/", doctor, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
