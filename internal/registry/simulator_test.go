package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"flightledger/internal/fingerprint"
	"flightledger/pkg/pipeline"
)

const registrant = "0xf398C12A45Bc409b6C652E25bb0a3e702492A4AB"

type SimulatorSuite struct {
	suite.Suite
	sim *Simulator
	ctx context.Context
}

func TestSimulatorSuite(t *testing.T) {
	suite.Run(t, new(SimulatorSuite))
}

func (s *SimulatorSuite) SetupTest() {
	s.sim = NewSimulator()
	s.ctx = context.Background()
}

func (s *SimulatorSuite) digest(label string) fingerprint.Digest {
	return fingerprint.HashBytes([]byte(label))
}

func (s *SimulatorSuite) TestRegisterThenExists() {
	fp := s.digest("flight-a")

	ok, err := s.sim.Exists(s.ctx, fp)
	s.Require().NoError(err)
	s.False(ok)

	tx, err := s.sim.Register(s.ctx, registrant, fp)
	s.Require().NoError(err)
	s.NotEmpty(tx)

	ok, err = s.sim.Exists(s.ctx, fp)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *SimulatorSuite) TestRegisterDuplicateRejected() {
	fp := s.digest("flight-a")

	_, err := s.sim.Register(s.ctx, registrant, fp)
	s.Require().NoError(err)

	_, err = s.sim.Register(s.ctx, registrant, fp)
	s.Require().Error(err)
	s.Equal(pipeline.ErrorDuplicateRecord, pipeline.Category(err))
	s.False(pipeline.IsRetryable(err))
}

func (s *SimulatorSuite) TestFingerprintUniqueAcrossRegistrants() {
	const other = "0x0000000000000000000000000000000000000001"
	fp := s.digest("flight-a")

	_, err := s.sim.Register(s.ctx, registrant, fp)
	s.Require().NoError(err)

	// The index is global: a second registrant sees the fingerprint and
	// cannot register it again.
	ok, err := s.sim.Exists(s.ctx, fp)
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.sim.Register(s.ctx, other, fp)
	s.Require().Error(err)
	s.Equal(pipeline.ErrorDuplicateRecord, pipeline.Category(err))

	// Ownership stays with the first registrant.
	records, err := s.sim.OwnedRecords(s.ctx, other)
	s.Require().NoError(err)
	s.Empty(records)

	_, err = s.sim.Link(s.ctx, other, fp, s.digest("telemetry-a"))
	s.Require().Error(err)
	s.ErrorIs(err, ErrNotRegistered)
}

func (s *SimulatorSuite) TestLinkTelemetry() {
	flight := s.digest("flight-a")
	telemetry := s.digest("telemetry-a")

	_, err := s.sim.Register(s.ctx, registrant, flight)
	s.Require().NoError(err)

	linked, err := s.sim.LinkedTelemetry(s.ctx, registrant, flight)
	s.Require().NoError(err)
	s.Equal(fingerprint.Zero, linked)

	tx, err := s.sim.Link(s.ctx, registrant, flight, telemetry)
	s.Require().NoError(err)
	s.NotEmpty(tx)

	linked, err = s.sim.LinkedTelemetry(s.ctx, registrant, flight)
	s.Require().NoError(err)
	s.Equal(telemetry, linked)
}

func (s *SimulatorSuite) TestLinkBeforeRegisterFails() {
	_, err := s.sim.Link(s.ctx, registrant, s.digest("flight-a"), s.digest("telemetry-a"))
	s.Require().Error(err)
	s.ErrorIs(err, ErrNotRegistered)
	s.Equal(pipeline.ErrorChainWrite, pipeline.Category(err))
}

func (s *SimulatorSuite) TestLinkTwiceFails() {
	flight := s.digest("flight-a")

	_, err := s.sim.Register(s.ctx, registrant, flight)
	s.Require().NoError(err)
	_, err = s.sim.Link(s.ctx, registrant, flight, s.digest("telemetry-a"))
	s.Require().NoError(err)

	_, err = s.sim.Link(s.ctx, registrant, flight, s.digest("telemetry-b"))
	s.Require().Error(err)
	s.ErrorIs(err, ErrAlreadyLinked)

	// The original link survives the rejected rewrite.
	linked, err := s.sim.LinkedTelemetry(s.ctx, registrant, flight)
	s.Require().NoError(err)
	s.Equal(s.digest("telemetry-a"), linked)
}

func (s *SimulatorSuite) TestOwnedRecordsPreservesOrder() {
	fps := []fingerprint.Digest{s.digest("a"), s.digest("b"), s.digest("c")}
	for _, fp := range fps {
		_, err := s.sim.Register(s.ctx, registrant, fp)
		s.Require().NoError(err)
	}
	_, err := s.sim.Link(s.ctx, registrant, fps[1], s.digest("telemetry-b"))
	s.Require().NoError(err)

	records, err := s.sim.OwnedRecords(s.ctx, registrant)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	for i, rec := range records {
		s.Equal(fps[i], rec.Fingerprint)
		s.Equal(registrant, rec.Registrant)
	}
	s.False(records[0].Linked())
	s.True(records[1].Linked())
}

func (s *SimulatorSuite) TestLookupUnregisteredFlight() {
	_, err := s.sim.LinkedTelemetry(s.ctx, registrant, s.digest("never-seen"))
	s.Require().Error(err)
	s.Equal(pipeline.ErrorChainRead, pipeline.Category(err))
	s.True(pipeline.IsRetryable(err))
}
