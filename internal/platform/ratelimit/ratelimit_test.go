package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 10
	testWindow = time.Minute
)

type SlidingWindowSuite struct {
	suite.Suite
	limiter *SlidingWindow
	ctx     context.Context
}

func TestSlidingWindowSuite(t *testing.T) {
	suite.Run(t, new(SlidingWindowSuite))
}

func (s *SlidingWindowSuite) SetupTest() {
	s.limiter = NewSlidingWindow(testLimit, testWindow)
	s.ctx = context.Background()
}

func (s *SlidingWindowSuite) TestAllow() {
	s.Run("first request allowed", func() {
		result, err := s.limiter.Allow(s.ctx, "requester:first")
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
	})

	s.Run("requests up to limit allowed", func() {
		var result Result
		var err error
		for range testLimit {
			result, err = s.limiter.Allow(s.ctx, "requester:limit")
		}
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(0, result.Remaining)
	})

	s.Run("request over limit denied", func() {
		for range testLimit {
			_, err := s.limiter.Allow(s.ctx, "requester:over")
			s.Require().NoError(err)
		}
		result, err := s.limiter.Allow(s.ctx, "requester:over")
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.False(result.ResetAt.IsZero())
	})

	s.Run("keys are independent", func() {
		for range testLimit {
			_, err := s.limiter.Allow(s.ctx, "requester:busy")
			s.Require().NoError(err)
		}
		result, err := s.limiter.Allow(s.ctx, "requester:quiet")
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}

func (s *SlidingWindowSuite) TestWindowExpiry() {
	limiter := NewSlidingWindow(1, 50*time.Millisecond)

	result, err := limiter.Allow(s.ctx, "requester:expiry")
	s.Require().NoError(err)
	s.True(result.Allowed)

	result, err = limiter.Allow(s.ctx, "requester:expiry")
	s.Require().NoError(err)
	s.False(result.Allowed)

	time.Sleep(60 * time.Millisecond)

	result, err = limiter.Allow(s.ctx, "requester:expiry")
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *SlidingWindowSuite) TestReset() {
	for range testLimit {
		_, err := s.limiter.Allow(s.ctx, "requester:reset")
		s.Require().NoError(err)
	}
	s.limiter.Reset("requester:reset")

	result, err := s.limiter.Allow(s.ctx, "requester:reset")
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *SlidingWindowSuite) TestConcurrentAllow() {
	const workers = 50
	limiter := NewSlidingWindow(workers, testWindow)

	var wg sync.WaitGroup
	allowed := make(chan bool, workers*2)
	for range workers * 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := limiter.Allow(s.ctx, "requester:concurrent")
			s.NoError(err)
			allowed <- result.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	granted := 0
	for ok := range allowed {
		if ok {
			granted++
		}
	}
	s.Equal(workers, granted)
}
