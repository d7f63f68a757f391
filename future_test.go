package reservoir

import (
	"errors"

	"github.com/aphistic/sweet"
	. "github.com/onsi/gomega"
)

type FutureSuite struct{}

func (s *FutureSuite) TestResolve(t sweet.T) {
	f := NewFuture()

	go f.Resolve("pong")

	value, err := f.Wait()
	Expect(err).To(BeNil())
	Expect(value).To(Equal("pong"))
}

func (s *FutureSuite) TestReject(t sweet.T) {
	f := NewFuture()

	go f.Reject(errors.New("utoh"))

	_, err := f.Wait()
	Expect(err).To(MatchError("utoh"))
}

func (s *FutureSuite) TestFirstSettlementWins(t sweet.T) {
	f := NewFuture()
	f.Resolve("first")
	f.Reject(errors.New("second"))
	f.Resolve("third")

	value, err := f.Wait()
	Expect(err).To(BeNil())
	Expect(value).To(Equal("first"))
}

func (s *FutureSuite) TestOnCompleteBeforeSettlement(t sweet.T) {
	var (
		f      = NewFuture()
		values = make(chan interface{}, 1)
	)

	f.OnComplete(func(value interface{}, err error) {
		values <- value
	})

	Consistently(values).ShouldNot(Receive())

	f.Resolve("pong")
	Expect(values).To(Receive(Equal("pong")))
}

func (s *FutureSuite) TestOnCompleteAfterSettlement(t sweet.T) {
	f := NewFuture()
	f.Resolve("pong")

	invoked := false
	f.OnComplete(func(value interface{}, err error) {
		invoked = true
	})

	Expect(invoked).To(BeTrue())
}

func (s *FutureSuite) TestOnFailure(t sweet.T) {
	var (
		resolved = NewFuture()
		rejected = NewFuture()
		errs     = make(chan error, 2)
	)

	resolved.Resolve("pong")
	rejected.Reject(errors.New("utoh"))

	resolved.OnFailure(func(err error) { errs <- err })
	rejected.OnFailure(func(err error) { errs <- err })

	Expect(errs).To(Receive(MatchError("utoh")))
	Consistently(errs).ShouldNot(Receive())
}

func (s *FutureSuite) TestAndThen(t sweet.T) {
	f := NewFuture()
	g := f.AndThen(func(value interface{}) (interface{}, error) {
		return value.(int) * 2, nil
	})

	f.Resolve(21)

	value, err := g.Wait()
	Expect(err).To(BeNil())
	Expect(value).To(Equal(42))
}

func (s *FutureSuite) TestAndThenError(t sweet.T) {
	f := NewFuture()
	g := f.AndThen(func(value interface{}) (interface{}, error) {
		return nil, errors.New("utoh")
	})

	f.Resolve(21)

	_, err := g.Wait()
	Expect(err).To(MatchError("utoh"))
}

func (s *FutureSuite) TestAndThenSkippedOnFailure(t sweet.T) {
	var (
		f       = NewFuture()
		invoked = false
	)

	g := f.AndThen(func(value interface{}) (interface{}, error) {
		invoked = true
		return value, nil
	})

	f.Reject(errors.New("utoh"))

	_, err := g.Wait()
	Expect(err).To(MatchError("utoh"))
	Expect(invoked).To(BeFalse())
}

func (s *FutureSuite) TestBind(t sweet.T) {
	f := NewFuture()
	g := NewFuture()
	f.Bind(g)

	g.Resolve("pong")

	value, err := f.Wait()
	Expect(err).To(BeNil())
	Expect(value).To(Equal("pong"))
}

func (s *FutureSuite) TestBindFailure(t sweet.T) {
	f := NewFuture()
	g := NewFuture()
	f.Bind(g)

	g.Reject(errors.New("utoh"))

	_, err := f.Wait()
	Expect(err).To(MatchError("utoh"))
}
