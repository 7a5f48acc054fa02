package mocks

//go:generate mockery --name RecordSource --srcpkg github.com/aevon-lab/vahan-pulse/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name RecordWriter --srcpkg github.com/aevon-lab/vahan-pulse/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
