package app

import (
	"time"

	"github.com/portdeck/portdeck/internal/app/api/server"
	"github.com/portdeck/portdeck/internal/app/service/checkout"
	"github.com/portdeck/portdeck/internal/app/service/order"
	"github.com/portdeck/portdeck/internal/app/service/port"
	"github.com/portdeck/portdeck/internal/app/service/provisioning"
	"github.com/portdeck/portdeck/internal/app/service/renewal"
	"github.com/portdeck/portdeck/internal/app/service/subscription"
	"github.com/portdeck/portdeck/internal/app/service/webhooklog"
	"github.com/portdeck/portdeck/internal/platform/db"
	"github.com/portdeck/portdeck/internal/platform/gateway"
	"github.com/portdeck/portdeck/pkg/config"
	"github.com/portdeck/portdeck/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	gateway.Module,
	server.Module,
	order.Module,
	port.Module,
	subscription.Module,
	provisioning.Module,
	renewal.Module,
	checkout.Module,
	webhooklog.Module,
)
