package registry

import (
	"go.uber.org/zap"

	"crypto-taint-tracer/internal/domain/entity"
	"crypto-taint-tracer/internal/domain/service"
	"crypto-taint-tracer/internal/infrastructure/config"
	"crypto-taint-tracer/internal/infrastructure/logger"
)

// builtinActors is the shipped bad-actor table: mixer routers and pools,
// bridge exploiters and sanctioned entities. Config can extend it but the
// shipped entries are always present.
var builtinActors = map[entity.Address]string{
	entity.MustAddress("0xd90e2f925da726b50c4ed8d0fb90ad053324f31b"): "Tornado Cash Router",
	entity.MustAddress("0x12d66f87a04a9e220743712ce6d9bb1b5616b8fc"): "Tornado Cash (0.1 ETH)",
	entity.MustAddress("0x47ce0c6ed5b0ce3d3a51fdb1c52dc66a7c3c2936"): "Tornado Cash (1 ETH)",
	entity.MustAddress("0x910cbd523d972eb0a6f4cae4618ad62622b39dbf"): "Tornado Cash (10 ETH)",
	entity.MustAddress("0xa160cdab225685da1d56aa342ad8841c3b53f291"): "Tornado Cash (100 ETH)",
	entity.MustAddress("0x7f367cc41522ce07553e823bf3be79a889debe1b"): "Exploiter (Generic)",
	entity.MustAddress("0x4b3406a41399c7fd2ba65cbc93697ad9e7ea61e5"): "Fake Phishing Site",
	entity.MustAddress("0x098b716b8aaf21512996dc57eb0615e2383e2f96"): "Ronin Bridge Exploiter",
	entity.MustAddress("0x8589427373d6d84e98730d7795d8f6f8731fda16"): "Ronin Bridge Exploiter 2",
	entity.MustAddress("0xba214c1c1928a32bffe790263e38b4af9bfcd659"): "OFAC Sanctioned Entity",
	entity.MustAddress("0x1da5821544e25c636c1417ba96ade4cf6d2f9b5a"): "OFAC Sanctioned Entity 2",
	entity.MustAddress("0x7db418b5d567a4e0e8c59ad71be1fce48f3e6107"): "OFAC Sanctioned Entity 3",
}

// StaticRegistry is an in-memory ActorRegistry: the built-in table plus any
// config-supplied extras, loaded once at startup. Lookups are plain map
// access and never block.
type StaticRegistry struct {
	actors map[entity.Address]string
}

// NewStaticRegistry builds the registry from the built-in table and the
// configured extras. Malformed configured addresses are logged and skipped;
// a bad config line must not take the registry down.
func NewStaticRegistry(cfg *config.RegistryConfig, logger *logger.Logger) service.ActorRegistry {
	log := logger.WithComponent("actor-registry")

	actors := make(map[entity.Address]string, len(builtinActors)+len(cfg.ExtraActors))
	for addr, label := range builtinActors {
		actors[addr] = label
	}

	for raw, label := range cfg.ExtraActors {
		addr, err := entity.NormalizeAddress(raw)
		if err != nil {
			log.Warn("Skipping malformed registry entry",
				zap.String("address", raw),
				zap.Error(err))
			continue
		}
		actors[addr] = label
	}

	log.Info("Actor registry loaded", zap.Int("entries", len(actors)))

	return &StaticRegistry{actors: actors}
}

// IsKnownBadActor reports registry membership and the entry's label.
func (r *StaticRegistry) IsKnownBadActor(address entity.Address) (bool, string) {
	label, ok := r.actors[address]
	return ok, label
}
