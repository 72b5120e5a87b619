package disk

import (
	"sync"
)

func NewScheduler(diskManager *Manager) *DiskScheduler {
	ds := &DiskScheduler{
		reqCh:       make(chan DiskReq, 100),
		blockQueue:  make(map[BlockID][]DiskReq),
		diskManager: diskManager,
		done:        make(chan struct{}),
	}

	go ds.handleDiskReq()
	return ds
}

func NewRequest(blk BlockID, data []byte, isWrite bool) DiskReq {
	return DiskReq{
		Block:  blk,
		Data:   data,
		Write:  isWrite,
		RespCh: make(chan DiskResp, 1),
	}
}

// Schedule queues req and returns the channel its response arrives on.
// Requests for the same block are served in the order they were scheduled.
func (ds *DiskScheduler) Schedule(req DiskReq) <-chan DiskResp {
	ds.reqCh <- req
	return req.RespCh
}

func (ds *DiskScheduler) Read(blk BlockID) ([]byte, error) {
	resp := <-ds.Schedule(NewRequest(blk, nil, false))
	return resp.Data, resp.Err
}

func (ds *DiskScheduler) Write(blk BlockID, data []byte) error {
	resp := <-ds.Schedule(NewRequest(blk, data, true))
	return resp.Err
}

func (ds *DiskScheduler) BlockSize() int {
	return ds.diskManager.BlockSize()
}

// Close stops accepting requests once the queued ones are dispatched.
// Scheduling after Close panics.
func (ds *DiskScheduler) Close() {
	ds.closeOnce.Do(func() {
		close(ds.reqCh)
		<-ds.done
		ds.workers.Wait()
	})
}

func (ds *DiskScheduler) handleDiskReq() {
	defer close(ds.done)

	for req := range ds.reqCh {
		ds.blockQueueMu.Lock()
		queue, ok := ds.blockQueue[req.Block]
		ds.blockQueue[req.Block] = append(queue, req)

		// !ok means we created a new block queue, therefore we should start a
		// new worker to handle the queue's requests
		if !ok {
			ds.workers.Add(1)
			go ds.blockWorker(req.Block)
		}
		ds.blockQueueMu.Unlock()
	}
}

func (ds *DiskScheduler) blockWorker(blk BlockID) {
	defer ds.workers.Done()

	for {
		ds.blockQueueMu.Lock()
		queue := ds.blockQueue[blk]
		if len(queue) == 0 {
			// done handling requests for this block
			delete(ds.blockQueue, blk)
			ds.blockQueueMu.Unlock()
			return
		}
		req := queue[0]
		ds.blockQueue[blk] = queue[1:]
		ds.blockQueueMu.Unlock()

		ds.serve(req)
	}
}

func (ds *DiskScheduler) serve(req DiskReq) {
	if req.Write {
		req.RespCh <- DiskResp{Err: ds.diskManager.writeBlock(req.Block, req.Data)}
		return
	}

	data, err := ds.diskManager.readBlock(req.Block)
	req.RespCh <- DiskResp{Data: data, Err: err}
}

type DiskScheduler struct {
	reqCh       chan DiskReq
	diskManager *Manager

	blockQueue   map[BlockID][]DiskReq
	blockQueueMu sync.Mutex
	workers      sync.WaitGroup
	done         chan struct{}
	closeOnce    sync.Once
}

type DiskReq struct {
	Block  BlockID
	Data   []byte
	Write  bool
	RespCh chan DiskResp
}

type DiskResp struct {
	Data []byte
	Err  error
}
