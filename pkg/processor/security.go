package processor

import (
	"context"

	"github.com/yourorg/pdf-toolkit/pkg/docengine"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
)

// MinPasswordLength applies to user and owner passwords.
const MinPasswordLength = 4

// Protect encrypts the document with AES-256. Without explicit permissions
// only printing is allowed.
func (p *Processor) Protect(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	if len(params.Password) < MinPasswordLength {
		return nil, errors.NewValidationError("password must be at least 4 characters")
	}
	if params.OwnerPassword != "" && len(params.OwnerPassword) < MinPasswordLength {
		return nil, errors.NewValidationError("owner password must be at least 4 characters")
	}

	perms := docengine.Permissions{Print: true}
	if len(params.Permissions) > 0 {
		perms = docengine.Permissions{}
		for _, name := range params.Permissions {
			switch name {
			case "print":
				perms.Print = true
			case "modify":
				perms.Modify = true
			case "copy":
				perms.Copy = true
			case "annotate":
				perms.Annotate = true
			default:
				return nil, errors.NewValidationError("permissions may only contain print, modify, copy and annotate")
			}
		}
	}

	f := files[0]
	doc, err := p.load(ctx, f, "")
	if err != nil {
		return nil, err
	}
	data, err := p.save(ctx, doc, docengine.SaveOptions{Encryption: &docengine.Encryption{
		UserPassword:  params.Password,
		OwnerPassword: params.OwnerPassword,
		Permissions:   perms,
	}})
	if err != nil {
		return nil, err
	}
	return &Result{Files: []OutputFile{pdfFile(baseName(f.Name)+"_protected.pdf", data)}}, nil
}

// Unlock decrypts a protected document.
func (p *Processor) Unlock(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	if params.Password == "" {
		return nil, errors.NewValidationError("password is required")
	}
	f := files[0]
	doc, err := p.lib.Load(ctx, f.Data, docengine.LoadOptions{Password: params.Password})
	if err != nil {
		return nil, errors.NewLoadError("incorrect password or document not protected", unwrapLoad(err))
	}
	data, err := p.save(ctx, doc, docengine.SaveOptions{})
	if err != nil {
		return nil, err
	}
	return &Result{Files: []OutputFile{pdfFile(baseName(f.Name)+"_unlocked.pdf", data)}}, nil
}

// unwrapLoad returns the engine cause of a LOAD_ERROR so messages are not
// prefixed twice.
func unwrapLoad(err error) error {
	if appErr := errors.FromError(err); appErr.Code == errors.ErrorCodeLoad && appErr.Err != nil {
		return appErr.Err
	}
	return err
}
