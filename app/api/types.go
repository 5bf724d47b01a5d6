package api

import (
	"github.com/letsrace/digest/app/catalog"
	"github.com/letsrace/digest/app/runner"
	"github.com/letsrace/digest/app/subscriber"
	"github.com/letsrace/digest/app/tasks"
	"github.com/letsrace/digest/app/token"
)

type Handler struct {
	subscribers *subscriber.Store
	catalog     *catalog.Catalog
	tokens      *token.Issuer
	runner      *runner.Runner
	scheduler   tasks.TaskSchedulerInterface
	version     string
}

type SubscribeRequest struct {
	Email       string   `json:"email"`
	Region      string   `json:"region"`
	Disciplines []string `json:"disciplines"`
	SendDay     string   `json:"send_day"`
}

type UnsubscribeRequest struct {
	Token string `json:"token"`
}

type PreviewRequest struct {
	Region      string   `json:"region"`
	Disciplines []string `json:"disciplines"`
	Date        string   `json:"date"`
}

type TestRequest struct {
	Email       string   `json:"email"`
	Region      string   `json:"region"`
	Disciplines []string `json:"disciplines"`
	Date        string   `json:"date"`
}
