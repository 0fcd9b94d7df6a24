package di

import (
	"io"
	"runtime/debug"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DestroySingletons closes the cached singletons in the reverse order
// of their creation, and empties the cache.
//
// An object is closed with the Close function of its definition,
// or with its own Close method if it implements io.Closer.
// Objects added with RegisterSingleton are the exception to the emptying
// of the cache: they are neither closed nor removed, and stay retrievable
// for as long as the Container is used.
// The products of producers are not closed either, only their producer is.
// All the objects are processed even if some of them fail to close.
// The errors are combined in the returned error.
//
// The Container can still be used afterwards. The singletons are built again.
func (ctn Container) DestroySingletons() error {
	var errs error
	failures := 0

	for _, c := range ctn.core.singletons.drain() {
		def, ok := ctn.closableDefinition(c.key)
		if !ok {
			continue
		}

		if err := closeObject(def, c.obj); err != nil {
			failures++
			errs = multierr.Append(errs, errors.Wrapf(err, "could not close `%s`", c.key))
			ctn.core.logger.Error("could not close singleton", zap.String("name", c.key), zap.Error(err))
			continue
		}

		ctn.core.logger.Debug("singleton closed", zap.String("name", c.key))
	}

	ctn.core.metrics.closeFailed(failures)
	ctn.core.metrics.setSingletons(ctn.core.singletons.count())

	return errs
}

// closableDefinition returns the definition used to close the object
// cached under key. Products are owned by their producer.
func (ctn Container) closableDefinition(key string) (Definition, bool) {
	bare, isProducer := splitProducerName(key)

	e, err := ctn.core.registry.lookup(bare)
	if err != nil {
		return Definition{Name: bare}, true
	}

	if e.producer && !isProducer {
		return Definition{}, false
	}

	return e.def, true
}

func closeObject(def Definition, obj interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("close panicked: %v stack=%s", r, debug.Stack())
		}
	}()

	if def.Close != nil {
		return def.Close(obj)
	}

	if closer, ok := obj.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
