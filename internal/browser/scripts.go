package browser

// Scripts evaluated inside tabs. Each is an async arrow function called
// with a single JSON argument object.

// dataURLToBlob is shared by the scripts below.
const dataURLToBlobJS = `
const dataUrlToBlob = (dataUrl) => {
  const parts = dataUrl.split(',');
  if (parts.length !== 2) throw new Error('Invalid data URL');
  const bytes = atob(parts[1]);
  const m = parts[0].match(/data:([^;]+);base64/);
  const mime = m ? m[1] : 'image/png';
  const buf = new Uint8Array(bytes.length);
  for (let i = 0; i < bytes.length; i++) buf[i] = bytes.charCodeAt(i);
  return new Blob([buf], { type: mime });
};
const blobToDataUrl = (blob) => new Promise((resolve, reject) => {
  const r = new FileReader();
  r.onload = () => resolve(r.result);
  r.onerror = () => reject(r.error || new Error('Failed to read blob'));
  r.readAsDataURL(blob);
});
`

// convertJS decodes a data URI, applies the resize rule, draws onto a
// canvas and re-encodes it. The bitmap is closed right after the draw and
// again in finally, so every exit path releases it.
const convertJS = `async (args) => {
` + dataURLToBlobJS + `
  const bmp = await createImageBitmap(dataUrlToBlob(args.dataUrl));
  try {
    let w = bmp.width, h = bmp.height;
    const max = args.maxDimension;
    if (max > 0 && (w > max || h > max)) {
      const s = Math.min(max / w, max / h);
      w = Math.max(1, Math.round(w * s));
      h = Math.max(1, Math.round(h * s));
    }
    const mime = args.format === 'jpeg' ? 'image/jpeg' : 'image/png';
    let out;
    if (typeof OffscreenCanvas !== 'undefined') {
      const canvas = new OffscreenCanvas(w, h);
      const ctx = canvas.getContext('2d');
      if (!ctx) throw new Error('Canvas 2D context unavailable');
      ctx.drawImage(bmp, 0, 0, w, h);
      bmp.close();
      out = await canvas.convertToBlob(args.format === 'jpeg' ? { type: mime, quality: args.quality } : { type: mime });
    } else {
      const canvas = document.createElement('canvas');
      canvas.width = w;
      canvas.height = h;
      const ctx = canvas.getContext('2d');
      if (!ctx) throw new Error('Canvas 2D context unavailable');
      ctx.drawImage(bmp, 0, 0, w, h);
      bmp.close();
      out = await new Promise((resolve, reject) => canvas.toBlob(
        (b) => b ? resolve(b) : reject(new Error('Canvas serialization failed')),
        mime,
        args.format === 'jpeg' ? args.quality : undefined));
    }
    if (!out || out.size === 0) throw new Error('Canvas produced no data');
    return await blobToDataUrl(out);
  } finally {
    bmp.close();
  }
}`

// clipboardJS writes an image data URI to the clipboard. When the blob's
// type differs from the target type it is transcoded first; that is the
// writer's own concern.
const clipboardJS = `async (args) => {
` + dataURLToBlobJS + `
  if (!document.hasFocus()) {
    window.focus();
    await new Promise((r) => setTimeout(r, args.focusWaitMs));
  }
  if (!navigator.clipboard || typeof navigator.clipboard.write !== 'function') {
    throw new Error('Clipboard API not available');
  }
  const transcode = async (blob, format) => {
    const mime = format === 'jpeg' ? 'image/jpeg' : 'image/png';
    const bmp = await createImageBitmap(blob);
    try {
      const canvas = new OffscreenCanvas(bmp.width, bmp.height);
      canvas.getContext('2d').drawImage(bmp, 0, 0);
      bmp.close();
      return await canvas.convertToBlob({ type: mime, quality: format === 'jpeg' ? 0.92 : undefined });
    } finally {
      bmp.close();
    }
  };
  try {
    const format = args.format === 'jpeg' ? 'jpeg' : 'png';
    const targetMime = format === 'jpeg' ? 'image/jpeg' : 'image/png';
    let blob = dataUrlToBlob(args.dataUrl);
    if (blob.type !== targetMime) blob = await transcode(blob, format);
    if (!blob || blob.size === 0) throw new Error('Invalid blob data');
    await navigator.clipboard.write([new ClipboardItem({ [targetMime]: blob })]);
    return true;
  } catch (err) {
    const msg = (err && err.message) || '';
    if (err && (err.name === 'NotAllowedError' || msg.includes('permission'))) {
      throw new Error('Permission denied - try clicking on the page first');
    } else if (err && (err.name === 'DataError' || msg.includes('data'))) {
      throw new Error('Invalid image data');
    } else if (err && err.name === 'TypeError' && msg.includes('ClipboardItem')) {
      throw new Error('ClipboardItem not supported - browser may be outdated');
    }
    throw new Error(msg || 'Clipboard write failed');
  }
}`

// toastJS replaces any previous toast with a new one.
const toastJS = `async (args) => {
  const old = document.getElementById('saveimg-toast');
  if (old) old.remove();
  const el = document.createElement('div');
  el.id = 'saveimg-toast';
  el.textContent = args.text;
  Object.assign(el.style, {
    position: 'fixed', bottom: '20px', right: '20px', zIndex: '2147483647',
    padding: '10px 14px', borderRadius: '6px',
    background: args.isError ? '#c0392b' : '#2d8a34', color: '#fff',
    fontSize: '13px', fontFamily: 'Arial, sans-serif',
    boxShadow: '0 4px 10px rgba(0,0,0,0.18)', maxWidth: '400px',
    wordWrap: 'break-word', whiteSpace: 'normal',
  });
  (document.body || document.documentElement).appendChild(el);
  setTimeout(() => el.remove(), args.durationMs);
  return true;
}`
