// Package testing provides testing utilities for code built on go-restkit.
//
// # Mocks
//
// The mocks subpackage provides testify-based mock implementations of the REST client
// extension points:
//   - serialization.Serializer
//   - restclient.TransportFactory
//   - restclient.SendFunc (MockSender, recording every attempt)
//
// # Fixtures
//
// The fixtures subpackage provides pre-configured senders for common scenarios:
// healthy, flaky, failing and slow upstreams.
//
// # Fake API
//
// The fakeapi subpackage starts a real HTTP server (echo behind httptest) with user
// resources, status and delay endpoints, compressed responses and request recording.
// It is used for end-to-end tests of the full client pipeline.
//
// # Usage
//
// Import the specific subpackages you need:
//
//	import (
//		"github.com/gaborage/go-restkit/testing/fakeapi"
//		"github.com/gaborage/go-restkit/testing/fixtures"
//		"github.com/gaborage/go-restkit/testing/mocks"
//	)
package testing
