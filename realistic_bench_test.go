package mempool

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
)

// BenchmarkRealisticUsage tests scenarios where a pool should excel
func BenchmarkRealisticUsage(b *testing.B) {

	// Many small allocations with periodic cleanup
	b.Run("ManySmallAllocs/Pool", func(b *testing.B) {
		p, _ := NewFactory(nil).NewPool("bench", 64*1024, 64*1024)
		defer p.Release()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			for j := 0; j < 100; j++ {
				p.Alloc(64)
			}
			// Simulates request cleanup
			p.Reset()
		}
	})

	b.Run("ManySmallAllocs/Builtin", func(b *testing.B) {
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			objects := make([][]byte, 100)
			for j := 0; j < 100; j++ {
				objects[j] = make([]byte, 64)
			}
			if i%10 == 0 {
				runtime.GC()
			}
		}
	})

	type TestStruct struct {
		ID   int64
		Data [56]byte // Total 64 bytes
	}

	b.Run("StructAllocs/Pool", func(b *testing.B) {
		p, _ := NewFactory(nil).NewPool("bench", 64*1024, 64*1024)
		defer p.Release()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			for j := 0; j < 50; j++ {
				s, _ := Alloc[TestStruct](p)
				s.ID = int64(j)
			}
			p.Reset()
		}
	})

	b.Run("StructAllocs/Builtin", func(b *testing.B) {
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			structs := make([]*TestStruct, 50)
			for j := 0; j < 50; j++ {
				structs[j] = &TestStruct{ID: int64(j)}
			}
			if i%10 == 0 {
				runtime.GC()
			}
		}
	})

	// Temporary buffers released together
	b.Run("BufferReuse/Pool", func(b *testing.B) {
		p, _ := NewFactory(nil).NewPool("bench", 1024*1024, 1024*1024)
		defer p.Release()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			for j := 0; j < 10; j++ {
				buf1, _ := p.Alloc(1024)
				buf2, _ := p.Alloc(2048)
				buf3, _ := p.Alloc(512)

				buf1[0] = byte(j)
				buf2[0] = byte(j)
				buf3[0] = byte(j)
			}
			p.Reset()
		}
	})

	b.Run("BufferReuse/Builtin", func(b *testing.B) {
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			buffers := make([][]byte, 30) // 3 buffers per item
			for j := 0; j < 10; j++ {
				buffers[j*3] = make([]byte, 1024)
				buffers[j*3+1] = make([]byte, 2048)
				buffers[j*3+2] = make([]byte, 512)

				buffers[j*3][0] = byte(j)
				buffers[j*3+1][0] = byte(j)
				buffers[j*3+2][0] = byte(j)
			}
			if i%5 == 0 {
				runtime.GC()
			}
		}
	})
}

// BenchmarkPoolLifecycle measures creating and releasing short-lived pools,
// with and without the recycle cache.
func BenchmarkPoolLifecycle(b *testing.B) {
	for _, caching := range []bool{false, true} {
		b.Run(fmt.Sprintf("caching=%v", caching), func(b *testing.B) {
			var opts []FactoryOption
			if caching {
				opts = append(opts, WithCaching(1<<20))
			}
			f := NewFactory(nil, opts...)
			defer f.Close()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				p, err := f.NewPool("req", 4000, 4000)
				if err != nil {
					b.Fatal(err)
				}
				for j := 0; j < 20; j++ {
					p.Alloc(100)
				}
				p.Release()
			}
		})
	}
}

// BenchmarkConcurrencyPatterns compares one shared SafePool with one pool
// per goroutine drawn from a shared factory.
func BenchmarkConcurrencyPatterns(b *testing.B) {
	b.Run("SafePool_Parallel", func(b *testing.B) {
		p, _ := NewFactory(nil).NewPool("shared", 1024*1024, 1024*1024)
		s := NewSafePool(p)
		defer s.Release()
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			i := 0
			for pb.Next() {
				s.Alloc(64)
				i++
				if i%1000 == 999 {
					s.Reset()
				}
			}
		})
	})

	b.Run("Pool_PerGoroutine", func(b *testing.B) {
		f := NewFactory(nil, WithCaching(16<<20))
		defer f.Close()
		var mu sync.Mutex
		var pools []*Pool
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			p, err := f.NewPool("", 64*1024, 64*1024)
			if err != nil {
				b.Error(err)
				return
			}
			mu.Lock()
			pools = append(pools, p)
			mu.Unlock()

			i := 0
			for pb.Next() {
				p.Alloc(64)
				i++
				if i%1000 == 999 {
					p.Reset()
				}
			}
		})

		b.StopTimer()
		for _, p := range pools {
			p.Release()
		}
	})

	b.Run("Builtin_Parallel", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				_ = make([]byte, 64)
			}
		})
	})
}
